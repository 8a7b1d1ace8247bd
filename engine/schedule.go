/*
schedule.go - The official workday definition

PURPOSE:
  ScheduleConfig is the single declarative description of a workday:
  morning and afternoon windows, the midday break, the grace period, and
  the per-session/per-day hour caps. It is constructed once at process
  start (from defaults or overrides), validated in one batch, and shared
  read-only by every calculation. No process-wide implicit state.

VALIDATION:
  Validate() checks every rule and returns a ConfigurationError listing
  ALL violations, not just the first. An operator fixing a config wants
  the full list in one round trip.

INVARIANTS (from the workday model):
  morningStart < morningEnd <= afternoonStart < afternoonEnd
  0 <= gracePeriodMinutes <= 60
  0 < sessionCapHours <= 12
  0 < maxDailyHours <= 24
  breakStart < breakEnd, both inside [morningEnd, afternoonStart]

DEFAULTS:
  08:00-12:00 morning, 13:00-17:00 afternoon, break 12:00-13:00,
  30 minute grace, 4h session cap, 8h daily cap.

SEE ALSO:
  - hours.go: Consumes a validated config
  - factory/schedule.go: JSON overrides on top of defaults
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCHEDULE CONFIG - Immutable workday policy
// =============================================================================

type ScheduleConfig struct {
	MorningStart   ClockTime
	MorningEnd     ClockTime
	AfternoonStart ClockTime
	AfternoonEnd   ClockTime

	BreakStart ClockTime
	BreakEnd   ClockTime

	// GraceMinutes after a window's official start during which a late
	// entry is clamped back to the start (no penalty, no bonus).
	GraceMinutes int

	// SessionCapHours is the maximum credit for a single half-day session.
	SessionCapHours decimal.Decimal

	// MaxDailyHours caps the day's total after both sessions are summed.
	MaxDailyHours decimal.Decimal
}

// DefaultSchedule returns the standard 8-hour workday configuration.
func DefaultSchedule() ScheduleConfig {
	return ScheduleConfig{
		MorningStart:    NewClockTime(8, 0),
		MorningEnd:      NewClockTime(12, 0),
		AfternoonStart:  NewClockTime(13, 0),
		AfternoonEnd:    NewClockTime(17, 0),
		BreakStart:      NewClockTime(12, 0),
		BreakEnd:        NewClockTime(13, 0),
		GraceMinutes:    30,
		SessionCapHours: decimal.NewFromInt(4),
		MaxDailyHours:   decimal.NewFromInt(8),
	}
}

// Window is one half-day session boundary pair.
type Window struct {
	Start ClockTime
	End   ClockTime
}

func (c ScheduleConfig) MorningWindow() Window {
	return Window{Start: c.MorningStart, End: c.MorningEnd}
}

func (c ScheduleConfig) AfternoonWindow() Window {
	return Window{Start: c.AfternoonStart, End: c.AfternoonEnd}
}

// =============================================================================
// BATCH VALIDATION
// =============================================================================

var (
	maxSessionCap = decimal.NewFromInt(12)
	maxDailyCap   = decimal.NewFromInt(24)
)

// Validate checks every configuration invariant and returns a
// *ConfigurationError enumerating all violations, or nil.
func (c ScheduleConfig) Validate() error {
	var violations []Violation

	add := func(code ViolationCode, field, detail string) {
		violations = append(violations, Violation{Code: code, Field: field, Detail: detail})
	}

	// Window ordering: morningStart < morningEnd <= afternoonStart < afternoonEnd
	if !c.MorningStart.Before(c.MorningEnd) {
		add(ViolationWindowOrder, "morning_start",
			fmt.Sprintf("morning start %s must be before morning end %s", c.MorningStart, c.MorningEnd))
	}
	if c.MorningEnd.After(c.AfternoonStart) {
		add(ViolationWindowOrder, "afternoon_start",
			fmt.Sprintf("morning end %s must not be after afternoon start %s", c.MorningEnd, c.AfternoonStart))
	}
	if !c.AfternoonStart.Before(c.AfternoonEnd) {
		add(ViolationWindowOrder, "afternoon_end",
			fmt.Sprintf("afternoon start %s must be before afternoon end %s", c.AfternoonStart, c.AfternoonEnd))
	}

	if c.GraceMinutes < 0 || c.GraceMinutes > 60 {
		add(ViolationGraceRange, "grace_minutes",
			fmt.Sprintf("grace period %d must be between 0 and 60 minutes", c.GraceMinutes))
	}

	if !c.SessionCapHours.IsPositive() || c.SessionCapHours.GreaterThan(maxSessionCap) {
		add(ViolationSessionCapRange, "session_cap_hours",
			fmt.Sprintf("session cap %s must be in (0, 12] hours", c.SessionCapHours))
	}

	if !c.MaxDailyHours.IsPositive() || c.MaxDailyHours.GreaterThan(maxDailyCap) {
		add(ViolationDailyCapRange, "max_daily_hours",
			fmt.Sprintf("daily cap %s must be in (0, 24] hours", c.MaxDailyHours))
	}

	if !c.BreakStart.Before(c.BreakEnd) {
		add(ViolationBreakOrder, "break_start",
			fmt.Sprintf("break start %s must be before break end %s", c.BreakStart, c.BreakEnd))
	}
	if c.BreakStart.Before(c.MorningEnd) || c.BreakEnd.After(c.AfternoonStart) {
		add(ViolationBreakBounds, "break_window",
			fmt.Sprintf("break [%s, %s] must lie within [%s, %s]",
				c.BreakStart, c.BreakEnd, c.MorningEnd, c.AfternoonStart))
	}

	if len(violations) > 0 {
		return &ConfigurationError{Violations: violations}
	}
	return nil
}
