package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAY PERIOD - The time boundary for aggregation and payroll
// =============================================================================

// PayPeriod is an inclusive date range. Hours are aggregated per period
// and payroll figures are derived per period, never at a point in time.
type PayPeriod struct {
	Start Day
	End   Day
}

// MonthlyPeriod returns the calendar-month period containing the month.
func MonthlyPeriod(year int, month time.Month) PayPeriod {
	start := NewDay(year, month, 1)
	end := Day{Time: time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
	return PayPeriod{Start: start, End: end}
}

// Contains returns true if the day is within [Start, End].
func (p PayPeriod) Contains(d Day) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns every day in the period.
func (p PayPeriod) Days() []Day {
	var days []Day
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// CalendarDays returns the inclusive day count.
func (p PayPeriod) CalendarDays() int {
	return int(p.End.Time.Sub(p.Start.Time).Hours()/24) + 1
}

// Workdays returns the number of weekdays in the period.
func (p PayPeriod) Workdays() int {
	count := 0
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		if current.IsWorkday() {
			count++
		}
	}
	return count
}

// ExpectedHours prorates the expected hours for the period:
// weekdays times the standard full-day hours.
func (p PayPeriod) ExpectedHours(dailyHours decimal.Decimal) decimal.Decimal {
	return dailyHours.Mul(decimal.NewFromInt(int64(p.Workdays())))
}

// IsValid reports whether the range is well-formed.
func (p PayPeriod) IsValid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && !p.End.Before(p.Start)
}

func (p PayPeriod) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
