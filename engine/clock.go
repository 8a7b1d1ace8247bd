package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLOCK TIME - Minute-of-day (schedule boundaries and effective punch times)
// =============================================================================

// ClockTime is a time of day expressed as minutes since midnight.
// Schedule windows and effective punch times are compared at minute
// precision; sub-minute punch jitter does not affect credited hours.
type ClockTime int

// NewClockTime builds a ClockTime from an hour and minute.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ClockTimeOf extracts the minute-of-day from a timestamp. The wall
// clock is read in UTC so a punch buckets the same way regardless of
// the offset it was captured with.
func ClockTimeOf(t time.Time) ClockTime {
	t = t.UTC()
	return ClockTime(t.Hour()*60 + t.Minute())
}

// ClockTimeFromHours converts decimal hours (e.g. 8.5 for 08:30) as used
// in configuration files. Fractions smaller than a minute are truncated.
func ClockTimeFromHours(hours float64) ClockTime {
	return ClockTime(int(hours * 60))
}

// Comparison
func (c ClockTime) Before(other ClockTime) bool { return c < other }
func (c ClockTime) After(other ClockTime) bool  { return c > other }

// Arithmetic
func (c ClockTime) AddMinutes(n int) ClockTime { return c + ClockTime(n) }

// Sub returns the signed distance in minutes.
func (c ClockTime) Sub(other ClockTime) int { return int(c - other) }

// Properties
func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// HoursBetween returns the elapsed hours from a to b as a decimal.
// Negative when b precedes a; callers clamp as needed.
func HoursBetween(a, b ClockTime) decimal.Decimal {
	return HoursFromMinutes(b.Sub(a))
}

// =============================================================================
// DAY - Calendar day (the grain of attendance records)
// =============================================================================

// Day is a calendar day, normalized to midnight UTC.
type Day struct {
	Time time.Time
}

func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates a timestamp to its UTC calendar day. A punch
// captured as 00:30+09:00 belongs to the previous day: all bucketing
// happens in UTC, matching what the stores persist.
func DayOf(t time.Time) Day {
	t = t.UTC()
	return NewDay(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day.
func Today() Day {
	return DayOf(time.Now())
}

// Comparison
func (d Day) Before(other Day) bool        { return d.Time.Before(other.Time) }
func (d Day) After(other Day) bool         { return d.Time.After(other.Time) }
func (d Day) Equal(other Day) bool         { return d.Time.Equal(other.Time) }
func (d Day) BeforeOrEqual(other Day) bool { return d.Before(other) || d.Equal(other) }
func (d Day) AfterOrEqual(other Day) bool  { return d.After(other) || d.Equal(other) }

// Arithmetic
func (d Day) AddDays(n int) Day   { return Day{Time: d.Time.AddDate(0, 0, n)} }
func (d Day) AddMonths(n int) Day { return Day{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Day) Year() int             { return d.Time.Year() }
func (d Day) Month() time.Month     { return d.Time.Month() }
func (d Day) DayOfMonth() int       { return d.Time.Day() }
func (d Day) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Day) IsZero() bool          { return d.Time.IsZero() }

func (d Day) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (d Day) IsWorkday() bool { return !d.IsWeekend() }

func (d Day) String() string { return d.Time.Format("2006-01-02") }

// At combines the day with a time of day into a timestamp.
func (d Day) At(c ClockTime) time.Time {
	return time.Date(d.Year(), d.Month(), d.DayOfMonth(), c.Hour(), c.Minute(), 0, 0, time.UTC)
}

// ParseDay parses an ISO date (2006-01-02).
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t), nil
}
