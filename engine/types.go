/*
Package engine provides the core attendance computation engine.

PURPOSE:
  This package contains the pure types and algorithms that turn raw
  clock-in/clock-out punches into credited work hours, aggregate those
  hours over a pay period, and derive payroll figures from them. It is
  the money-critical part of the system: grace periods, session caps,
  and rounding rules all live here.

KEY CONCEPTS IN THIS FILE (types.go):
  - ClockEvent: A single labeled punch (morning-in, afternoon-out, ...)
  - ClockLabel: The semantic slot a punch fills within a workday
  - EmployeeID/PunchID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Purity: Calculators are side-effect-free functions over immutable inputs
  2. Precision: Uses decimal.Decimal to avoid floating-point drift in pay
  3. Degradation: Bad punch data degrades to zero/clamped hours, never panics
  4. Auditability: Every clamp or inconsistency surfaces as an Anomaly

USAGE:
  calc, err := engine.NewCalculator(engine.DefaultSchedule())
  breakdown := calc.ComputeDay("emp-1", day, sessions)

SEE ALSO:
  - schedule.go: ScheduleConfig and its batch validation
  - hours.go: Session-to-hours calculation
  - payroll.go: Gross/net pay derivation
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type PunchID string
type RunID string

// =============================================================================
// CLOCK LABELS - The four punch slots of a workday
// =============================================================================

// ClockLabel identifies which slot of the workday a punch fills.
// A label may be present without its pair (clock-in with no clock-out);
// that is a valid partial state, not an error.
type ClockLabel string

const (
	LabelMorningIn    ClockLabel = "morning_in"
	LabelMorningOut   ClockLabel = "morning_out"
	LabelAfternoonIn  ClockLabel = "afternoon_in"
	LabelAfternoonOut ClockLabel = "afternoon_out"
)

// AllLabels lists the labels in workday order.
var AllLabels = []ClockLabel{LabelMorningIn, LabelMorningOut, LabelAfternoonIn, LabelAfternoonOut}

// Valid reports whether l is one of the four recognized labels.
func (l ClockLabel) Valid() bool {
	switch l {
	case LabelMorningIn, LabelMorningOut, LabelAfternoonIn, LabelAfternoonOut:
		return true
	}
	return false
}

// IsEntry reports whether the label opens a session.
func (l ClockLabel) IsEntry() bool {
	return l == LabelMorningIn || l == LabelAfternoonIn
}

// =============================================================================
// CLOCK EVENT - A single punch in the attendance ledger
// =============================================================================

type ClockEvent struct {
	ID         PunchID
	EmployeeID EmployeeID
	Label      ClockLabel
	At         time.Time
	Source     string // "terminal", "mobile", "admin", ...

	// IdempotencyKey guards against double submission from retries.
	IdempotencyKey string

	CreatedAt time.Time
}

// Day returns the calendar day the punch belongs to.
func (e ClockEvent) Day() Day {
	return DayOf(e.At)
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// minutesPerHour is the divisor for converting punch arithmetic to hours.
var minutesPerHour = decimal.NewFromInt(60)

// HoursFromMinutes converts a minute count to decimal hours.
func HoursFromMinutes(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(minutesPerHour)
}
