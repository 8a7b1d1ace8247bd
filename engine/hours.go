/*
hours.go - Session-to-hours calculation

PURPOSE:
  Maps one employee-day of punches into credited work hours under a
  ScheduleConfig. This is the piece that directly affects money paid to
  employees, so every boundary rule is explicit:

  PER HALF-DAY (morning and afternoon computed identically):
    1. Missing entry OR missing exit -> zero hours. A session counts
       only as a complete in/out pair.
    2. Effective start: entry at or before windowStart+grace clamps to
       windowStart (early arrival earns no bonus, grace absorbs minor
       lateness). Beyond grace, the actual entry is used and the raw
       minutes past windowStart are recorded as late minutes - the
       monetary penalty is a downstream payroll policy, never baked in
       here.
    3. Effective end: min(actual exit, window end). Staying late is
       permitted but uncompensated.
    4. Negative spans (clock-out before clock-in) credit zero and are
       flagged as an anomaly, never fatal.
    5. Session hours cap at SessionCapHours, the day's total at
       MaxDailyHours.

  CROSS-BREAK SESSIONS:
    A day holding exactly one entry punch before the break and one exit
    punch after it is a single continuous session. It is split at the
    break and credited against both windows. A truly dangling single
    punch still credits zero.

  ROUNDING:
    Hour fields keep full decimal precision so period aggregation does
    not compound rounding error. WholeHours() rounds once, at the
    display boundary.

SEE ALSO:
  - schedule.go: The configuration consumed here
  - aggregate.go: Sums breakdowns over a pay period
*/
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS BREAKDOWN - Output of the day calculation
// =============================================================================

// SessionHours is the credited result for one half-day window.
// Effective times are the clamped boundaries actually used; they are
// nil when the session contributed nothing.
type SessionHours struct {
	Hours        decimal.Decimal
	EffectiveIn  *ClockTime
	EffectiveOut *ClockTime
}

// HoursBreakdown is the structured result for one employee-day.
type HoursBreakdown struct {
	EmployeeID EmployeeID
	Date       Day

	Morning   SessionHours
	Afternoon SessionHours

	// TotalHours = morning + afternoon, clamped to the daily cap.
	// Full precision; round only at the reporting boundary.
	TotalHours decimal.Decimal

	// LateMinutes is the raw lateness past official window starts,
	// beyond grace. Deduction policy is applied downstream.
	LateMinutes int

	Anomalies []Anomaly
}

// WholeHours rounds the day total to whole hours for display.
func (b HoursBreakdown) WholeHours() int64 {
	return b.TotalHours.Round(0).IntPart()
}

// Rounded returns a copy with hour fields rounded to the given places.
func (b HoursBreakdown) Rounded(places int32) HoursBreakdown {
	b.Morning.Hours = b.Morning.Hours.Round(places)
	b.Afternoon.Hours = b.Afternoon.Hours.Round(places)
	b.TotalHours = b.TotalHours.Round(places)
	return b
}

// =============================================================================
// HOURS CALCULATOR - Pure function over a validated config
// =============================================================================

// HoursCalculator computes HoursBreakdowns under one ScheduleConfig.
// It holds no mutable state; concurrent use is safe.
type HoursCalculator struct {
	cfg ScheduleConfig
}

// NewCalculator validates the configuration and returns a calculator.
// An invalid config is rejected with the full violation list; the
// engine never runs against a config the operator hasn't fixed.
func NewCalculator(cfg ScheduleConfig) (*HoursCalculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &HoursCalculator{cfg: cfg}, nil
}

// Config returns the schedule the calculator was built with.
func (c *HoursCalculator) Config() ScheduleConfig { return c.cfg }

// ComputeDay maps a day's punches into an HoursBreakdown.
// Never fails: missing or inconsistent punches degrade to zero hours.
func (c *HoursCalculator) ComputeDay(employee EmployeeID, date Day, set SessionSet) HoursBreakdown {
	set = c.splitCrossBreak(set)

	breakdown := HoursBreakdown{EmployeeID: employee, Date: date}

	var late int
	breakdown.Morning, late = c.sessionHours(c.cfg.MorningWindow(), set.MorningIn, set.MorningOut, &breakdown, employee, date)
	breakdown.LateMinutes += late

	breakdown.Afternoon, late = c.sessionHours(c.cfg.AfternoonWindow(), set.AfternoonIn, set.AfternoonOut, &breakdown, employee, date)
	breakdown.LateMinutes += late

	total := breakdown.Morning.Hours.Add(breakdown.Afternoon.Hours)
	if total.GreaterThan(c.cfg.MaxDailyHours) {
		total = c.cfg.MaxDailyHours
	}
	breakdown.TotalHours = total

	return breakdown
}

// sessionHours applies the boundary rules to one half-day window.
func (c *HoursCalculator) sessionHours(win Window, in, out *time.Time, b *HoursBreakdown, employee EmployeeID, date Day) (SessionHours, int) {
	zero := SessionHours{Hours: decimal.Zero}

	// A session must be a complete in/out pair to count.
	if in == nil || out == nil {
		return zero, 0
	}

	entry := ClockTimeOf(*in)
	exit := ClockTimeOf(*out)

	if exit.Before(entry) {
		// Data anomaly: out before in. Credit nothing, flag for audit.
		b.Anomalies = append(b.Anomalies, Anomaly{
			Code:       AnomalyOutBeforeIn,
			EmployeeID: employee,
			Date:       date,
			Detail:     fmt.Sprintf("clock-out %s precedes clock-in %s", exit, entry),
		})
		return zero, 0
	}

	// Effective start: early arrivals and in-grace lateness clamp to the
	// official start. Beyond grace, the actual entry reduces credit and
	// the raw late minutes feed the downstream deduction policy.
	effIn := entry
	late := 0
	graceEnd := win.Start.AddMinutes(c.cfg.GraceMinutes)
	if !entry.After(graceEnd) {
		effIn = win.Start
	} else {
		late = entry.Sub(win.Start)
	}

	// Effective end: late clock-out earns no extra credit.
	effOut := exit
	if effOut.After(win.End) {
		effOut = win.End
	}

	raw := HoursBetween(effIn, effOut)
	if !raw.IsPositive() {
		// Session fell entirely outside its window.
		return zero, late
	}

	hours := raw
	if hours.GreaterThan(c.cfg.SessionCapHours) {
		hours = c.cfg.SessionCapHours
	}

	return SessionHours{Hours: hours, EffectiveIn: &effIn, EffectiveOut: &effOut}, late
}

// splitCrossBreak detects a single in/out pair spanning the midday break
// (employee punched twice, not four times) and splits it across both
// windows so each half-day is credited against its own boundaries.
func (c *HoursCalculator) splitCrossBreak(s SessionSet) SessionSet {
	if s.MorningIn != nil && s.MorningOut == nil && s.AfternoonIn == nil && s.AfternoonOut != nil {
		in := ClockTimeOf(*s.MorningIn)
		out := ClockTimeOf(*s.AfternoonOut)
		if in.Before(c.cfg.BreakStart) && out.After(c.cfg.BreakEnd) {
			s.MorningOut = s.AfternoonOut
			s.AfternoonIn = s.MorningIn
		}
	}
	return s
}
