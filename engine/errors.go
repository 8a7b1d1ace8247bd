/*
errors.go - Centralized error and anomaly types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine distinguishes exactly two failure classes:

  1. ConfigurationError - fatal, raised once when a ScheduleConfig is
     constructed. Carries EVERY violated rule (batch validation), since
     an operator must fix the whole configuration before any payroll run.

  2. Anomaly - non-fatal. Observed data is internally inconsistent
     (clock-out before clock-in, net pay clamped to zero). The engine
     still returns a usable zeroed/clamped result and surfaces the
     anomaly for audit. One bad day never aborts a period's payroll run.

  Absent data is data, not failure: a missing punch contributes zero
  hours and produces neither an error nor an anomaly.

SEE ALSO:
  - schedule.go: Produces ConfigurationError
  - hours.go: Produces Anomaly values
  - store.go: Uses the ledger sentinel errors
*/
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidConfig is the sentinel wrapped by every ConfigurationError.
	ErrInvalidConfig = errors.New("invalid schedule configuration")

	// ErrDuplicateIdempotencyKey is returned when a punch with the same
	// idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrDuplicatePunch is returned when a punch slot is already filled
	// for the employee-day (two morning-in punches on the same day).
	ErrDuplicatePunch = errors.New("duplicate punch for label on day")

	// ErrInvalidPunch is returned when a punch is malformed: missing
	// employee, missing timestamp, or an unrecognized label.
	ErrInvalidPunch = errors.New("invalid punch")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrRunNotFound is returned when a referenced payroll run doesn't exist.
	ErrRunNotFound = errors.New("payroll run not found")

	// ErrInvalidPeriod is returned when a pay period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid pay period: end before start")
)

// =============================================================================
// CONFIGURATION ERROR - Batch validation of ScheduleConfig
// =============================================================================

// ViolationCode identifies a violated configuration rule. Codes are stable
// identifiers; rendering them in a display language is the caller's job.
type ViolationCode string

const (
	ViolationWindowOrder     ViolationCode = "window_order"      // morningStart < morningEnd <= afternoonStart < afternoonEnd
	ViolationGraceRange      ViolationCode = "grace_range"       // 0 <= grace <= 60 minutes
	ViolationSessionCapRange ViolationCode = "session_cap_range" // 0 < cap <= 12 hours
	ViolationDailyCapRange   ViolationCode = "daily_cap_range"   // 0 < cap <= 24 hours
	ViolationBreakOrder      ViolationCode = "break_order"       // breakStart < breakEnd
	ViolationBreakBounds     ViolationCode = "break_bounds"      // break inside [morningEnd, afternoonStart]
)

// Violation is one violated rule with enough parameters to render a message.
type Violation struct {
	Code   ViolationCode
	Field  string
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s (%s): %s", v.Code, v.Field, v.Detail)
}

// ConfigurationError enumerates every rule a ScheduleConfig violates.
// Fatal - the engine must not run with an invalid configuration.
type ConfigurationError struct {
	Violations []Violation
}

func (e *ConfigurationError) Error() string {
	codes := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		codes[i] = string(v.Code)
	}
	return fmt.Sprintf("invalid schedule configuration: %s", strings.Join(codes, ", "))
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfig }

// Has reports whether the error includes the given violation code.
func (e *ConfigurationError) Has(code ViolationCode) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// =============================================================================
// DUPLICATE PUNCH - Structured ledger error
// =============================================================================

// DuplicatePunchError provides details about a punch slot collision.
type DuplicatePunchError struct {
	EmployeeID EmployeeID
	Label      ClockLabel
	Date       Day
	ExistingID PunchID
}

func (e *DuplicatePunchError) Error() string {
	return fmt.Sprintf("punch already recorded: %s on %s for %s (punch: %s)",
		e.Label, e.Date, e.EmployeeID, e.ExistingID)
}

func (e *DuplicatePunchError) Unwrap() error { return ErrDuplicatePunch }

// =============================================================================
// ANOMALY - Non-fatal data inconsistency, surfaced for audit
// =============================================================================

type AnomalyCode string

const (
	// AnomalyOutBeforeIn: a session's clock-out precedes its clock-in.
	// The half-day is credited zero hours.
	AnomalyOutBeforeIn AnomalyCode = "out_before_in"

	// AnomalyDuplicateLabel: multiple punches fill the same slot; the
	// earliest one is used.
	AnomalyDuplicateLabel AnomalyCode = "duplicate_label"

	// AnomalyNegativeNetPay: deductions exceeded gross pay; net pay was
	// clamped to zero instead of paying out a negative amount.
	AnomalyNegativeNetPay AnomalyCode = "negative_net_pay"
)

// Anomaly records an internally inconsistent observation. Never fatal.
type Anomaly struct {
	Code       AnomalyCode
	EmployeeID EmployeeID
	Date       Day
	Detail     string
}

func (a Anomaly) String() string {
	if a.Date.IsZero() {
		return fmt.Sprintf("%s [%s]: %s", a.Code, a.EmployeeID, a.Detail)
	}
	return fmt.Sprintf("%s [%s %s]: %s", a.Code, a.EmployeeID, a.Date, a.Detail)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicatePunch) ||
		errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrInvalidPunch) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrRunNotFound)
}
