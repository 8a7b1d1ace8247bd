/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND HOURS:
  Monetary and hour fields are rendered as decimal STRINGS ("1234.50"),
  never floats. The engine computes in exact decimals; the API must not
  reintroduce binary floating point at the boundary.

TYPES:
  Employee:  EmployeeDTO, CreateEmployeeRequest
  Punch:     PunchDTO, RecordPunchRequest
  Hours:     SessionHoursDTO, DayHoursDTO, PeriodSummaryDTO
  Schedule:  factory.ScheduleJSON (shared with the config file)
  Payroll:   RunPayrollRequest, PayrollFiguresDTO, RunDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/schedule.go: ScheduleJSON type
*/
package api

import (
	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/factory"
)

// =============================================================================
// EMPLOYEE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	BaseSalary string `json:"base_salary"`
	Benefits   string `json:"benefits"`
	Deductions string `json:"deductions"`
	HireDate   string `json:"hire_date"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create or update an employee.
type CreateEmployeeRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	BaseSalary string `json:"base_salary"`
	Benefits   string `json:"benefits"`
	Deductions string `json:"deductions"`
	HireDate   string `json:"hire_date"`
}

// =============================================================================
// PUNCH TYPES
// =============================================================================

// PunchDTO represents one clock event in API responses.
type PunchDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Label      string `json:"label"`
	At         string `json:"at"`
	Source     string `json:"source,omitempty"`
}

// RecordPunchRequest is the request to record a clock event. Label may
// be empty: the ledger infers the slot from the schedule and the day's
// existing punches (wall terminals send bare timestamps).
type RecordPunchRequest struct {
	Label          string `json:"label,omitempty"`
	At             string `json:"at"` // RFC3339
	Source         string `json:"source,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// =============================================================================
// HOURS TYPES
// =============================================================================

// SessionHoursDTO is one half-day's credited hours.
type SessionHoursDTO struct {
	Hours        string  `json:"hours"`
	EffectiveIn  *string `json:"effective_in,omitempty"`
	EffectiveOut *string `json:"effective_out,omitempty"`
}

// DayHoursDTO is the computed breakdown for one employee-day.
type DayHoursDTO struct {
	EmployeeID  string          `json:"employee_id"`
	Date        string          `json:"date"`
	Morning     SessionHoursDTO `json:"morning"`
	Afternoon   SessionHoursDTO `json:"afternoon"`
	TotalHours  string          `json:"total_hours"`
	WholeHours  int64           `json:"whole_hours"`
	LateMinutes int             `json:"late_minutes"`
	Anomalies   []AnomalyDTO    `json:"anomalies,omitempty"`
}

// PeriodSummaryDTO is an employee's aggregated hours over a pay period.
type PeriodSummaryDTO struct {
	EmployeeID     string       `json:"employee_id"`
	PeriodStart    string       `json:"period_start"`
	PeriodEnd      string       `json:"period_end"`
	WorkedHours    string       `json:"worked_hours"`
	MorningHours   string       `json:"morning_hours"`
	AfternoonHours string       `json:"afternoon_hours"`
	LateMinutes    int64        `json:"late_minutes"`
	WorkingDays    int          `json:"working_days"`
	CalendarDays   int          `json:"calendar_days"`
	Anomalies      []AnomalyDTO `json:"anomalies,omitempty"`
}

// AnomalyDTO surfaces a non-fatal data inconsistency.
type AnomalyDTO struct {
	Code       string `json:"code"`
	EmployeeID string `json:"employee_id,omitempty"`
	Date       string `json:"date,omitempty"`
	Detail     string `json:"detail"`
}

// =============================================================================
// SCHEDULE TYPES
// =============================================================================

// ScheduleDTO wraps the schedule JSON with its stored version.
type ScheduleDTO struct {
	Version int                  `json:"version"`
	Config  factory.ScheduleJSON `json:"config"`
}

// UpdateScheduleRequest replaces the active schedule configuration.
// Omitted fields fall back to the defaults, not to the previous version:
// each stored version is a complete, self-describing configuration.
type UpdateScheduleRequest struct {
	Config factory.ScheduleJSON `json:"config"`
}

// =============================================================================
// PAYROLL TYPES
// =============================================================================

// RunPayrollRequest triggers a payroll run for one month.
type RunPayrollRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`

	// ExpectedHours for the period as a decimal string. Empty means
	// prorate from the period's weekdays at 8 hours per day.
	ExpectedHours string `json:"expected_hours,omitempty"`

	// Policy selects the late-deduction pricing. Nil means none.
	Policy *factory.PayrollPolicyJSON `json:"policy,omitempty"`
}

// PayrollFiguresDTO is one employee's payslip figures.
type PayrollFiguresDTO struct {
	EmployeeID          string       `json:"employee_id"`
	WorkedHours         string       `json:"worked_hours"`
	ExpectedHours       string       `json:"expected_hours"`
	GrossPay            string       `json:"gross_pay"`
	LateDeductions      string       `json:"late_deductions"`
	TotalDeductions     string       `json:"total_deductions"`
	TotalBenefits       string       `json:"total_benefits"`
	OvertimeToLeaveDays string       `json:"overtime_to_leave_days"`
	NetPay              string       `json:"net_pay"`
	Warnings            []AnomalyDTO `json:"warnings,omitempty"`
}

// RunDTO is a completed payroll run.
type RunDTO struct {
	ID           string              `json:"id"`
	PeriodStart  string              `json:"period_start"`
	PeriodEnd    string              `json:"period_end"`
	Figures      []PayrollFiguresDTO `json:"figures,omitempty"`
	AnomalyCount int                 `json:"anomaly_count"`
	CreatedAt    string              `json:"created_at,omitempty"`
}

// =============================================================================
// DTO CONVERSIONS
// =============================================================================

func anomalyDTOs(anomalies []engine.Anomaly) []AnomalyDTO {
	if len(anomalies) == 0 {
		return nil
	}
	dtos := make([]AnomalyDTO, len(anomalies))
	for i, a := range anomalies {
		dtos[i] = AnomalyDTO{
			Code:       string(a.Code),
			EmployeeID: string(a.EmployeeID),
			Detail:     a.Detail,
		}
		if !a.Date.IsZero() {
			dtos[i].Date = a.Date.String()
		}
	}
	return dtos
}

func sessionHoursDTO(s engine.SessionHours) SessionHoursDTO {
	dto := SessionHoursDTO{Hours: s.Hours.String()}
	if s.EffectiveIn != nil {
		v := s.EffectiveIn.String()
		dto.EffectiveIn = &v
	}
	if s.EffectiveOut != nil {
		v := s.EffectiveOut.String()
		dto.EffectiveOut = &v
	}
	return dto
}

func dayHoursDTO(b engine.HoursBreakdown) DayHoursDTO {
	// Full engine precision is noise in a response body; four places
	// keeps minute granularity exact (1/60 = 0.0167).
	b = b.Rounded(4)
	return DayHoursDTO{
		EmployeeID:  string(b.EmployeeID),
		Date:        b.Date.String(),
		Morning:     sessionHoursDTO(b.Morning),
		Afternoon:   sessionHoursDTO(b.Afternoon),
		TotalHours:  b.TotalHours.String(),
		WholeHours:  b.WholeHours(),
		LateMinutes: b.LateMinutes,
		Anomalies:   anomalyDTOs(b.Anomalies),
	}
}

func periodSummaryDTO(t engine.PeriodTotals) PeriodSummaryDTO {
	return PeriodSummaryDTO{
		EmployeeID:     string(t.EmployeeID),
		PeriodStart:    t.Period.Start.String(),
		PeriodEnd:      t.Period.End.String(),
		WorkedHours:    t.WorkedHours.String(),
		MorningHours:   t.MorningHours.String(),
		AfternoonHours: t.AfternoonHours.String(),
		LateMinutes:    t.LateMinutes,
		WorkingDays:    t.WorkingDays,
		CalendarDays:   t.CalendarDays,
		Anomalies:      anomalyDTOs(t.Anomalies),
	}
}

func figuresDTO(f engine.PayrollFigures) PayrollFiguresDTO {
	return PayrollFiguresDTO{
		EmployeeID:          string(f.EmployeeID),
		WorkedHours:         f.TotalWorkedHours.String(),
		ExpectedHours:       f.ExpectedHours.String(),
		GrossPay:            f.GrossPay.String(),
		LateDeductions:      f.LateDeductions.String(),
		TotalDeductions:     f.TotalDeductions.String(),
		TotalBenefits:       f.TotalBenefits.String(),
		OvertimeToLeaveDays: f.OvertimeToLeaveDays.String(),
		NetPay:              f.NetPay.String(),
		Warnings:            anomalyDTOs(f.Warnings),
	}
}
