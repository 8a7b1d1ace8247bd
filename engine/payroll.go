/*
payroll.go - Payroll derivation from aggregated hours

PURPOSE:
  Maps an employee's aggregated period hours, base salary, and
  configured ratios into the figures that end up on a payslip:
  gross pay, late deductions, overtime-to-leave conversion, net pay.

THE RULES:
  grossPay = baseSalary * (workedHours / expectedHours)
             expectedHours == 0 is a documented degenerate case yielding
             gross 0, not a division error.
  lateDeductions = DeductionPolicy(lateMinutes), monotone in lateness,
             never exceeding gross pay.
  overtimeToLeaveDays = overtimeHours * ratio (default 0.125:
             8 overtime hours = 1 leave day).
  netPay = max(0, gross - deductions + benefits). A clamped negative is
             surfaced as a warning and never persisted as a negative
             payout.

  Money fields round once, here at the reporting boundary, to the
  configured number of places (default 2).

SEE ALSO:
  - aggregate.go: Produces the totals consumed here
  - payroll/: Concrete deduction policies and the concurrent runner
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DEDUCTION POLICY - Late-minutes to money, supplied by the caller
// =============================================================================

// DeductionPolicy converts accumulated late minutes into a monetary
// deduction. Implementations must be monotonically non-decreasing in
// lateMinutes and must compose additively across days (the engine hands
// them the period sum).
type DeductionPolicy interface {
	Deduct(lateMinutes int64) decimal.Decimal
}

// DefaultOvertimeToLeaveRatio converts 8 overtime hours into 1 leave day.
var DefaultOvertimeToLeaveRatio = MustParseDecimal("0.125")

// ClassifyOvertime is the default downstream overtime policy: hours
// worked beyond the expected period hours.
func ClassifyOvertime(workedHours, expectedHours decimal.Decimal) decimal.Decimal {
	overtime := workedHours.Sub(expectedHours)
	if overtime.IsNegative() {
		return decimal.Zero
	}
	return overtime
}

// =============================================================================
// PAYROLL INPUT / FIGURES
// =============================================================================

type PayrollInput struct {
	Totals PeriodTotals

	BaseSalary    decimal.Decimal
	ExpectedHours decimal.Decimal

	// OvertimeHours is classified upstream (see ClassifyOvertime).
	OvertimeHours decimal.Decimal

	// OvertimeToLeaveRatio falls back to DefaultOvertimeToLeaveRatio
	// when zero.
	OvertimeToLeaveRatio decimal.Decimal

	Benefits        decimal.Decimal
	OtherDeductions decimal.Decimal

	// LatePolicy may be nil: no late deductions.
	LatePolicy DeductionPolicy
}

// PayrollFigures is the per-employee, per-period output record.
type PayrollFigures struct {
	EmployeeID EmployeeID
	Period     PayPeriod

	TotalWorkedHours decimal.Decimal
	ExpectedHours    decimal.Decimal

	GrossPay        decimal.Decimal
	LateDeductions  decimal.Decimal
	TotalDeductions decimal.Decimal
	TotalBenefits   decimal.Decimal

	OvertimeToLeaveDays decimal.Decimal

	NetPay decimal.Decimal

	Warnings []Anomaly
}

// =============================================================================
// PAYROLL DERIVER
// =============================================================================

// PayrollDeriver computes PayrollFigures from aggregated hours.
// Pure and stateless; safe for concurrent use.
type PayrollDeriver struct {
	// MoneyPlaces is the rounding precision for monetary fields.
	// Nil means the default of 2; currencies without subunits set an
	// explicit 0.
	MoneyPlaces *int32
}

func (d PayrollDeriver) places() int32 {
	if d.MoneyPlaces == nil {
		return 2
	}
	return *d.MoneyPlaces
}

// Derive computes the payroll figures. Calculation-time inputs are never
// rejected: out-of-range values degrade to the documented zero/clamp
// behavior so one bad record cannot abort a period's payroll run.
func (d PayrollDeriver) Derive(in PayrollInput) PayrollFigures {
	places := d.places()

	fig := PayrollFigures{
		EmployeeID:       in.Totals.EmployeeID,
		Period:           in.Totals.Period,
		TotalWorkedHours: in.Totals.WorkedHours.Round(places),
		ExpectedHours:    in.ExpectedHours,
	}

	// Gross pay: proportional to hours worked. expectedHours == 0 is the
	// documented degenerate case: gross 0, no division error.
	gross := decimal.Zero
	if in.ExpectedHours.IsPositive() && in.BaseSalary.IsPositive() {
		gross = in.BaseSalary.Mul(in.Totals.WorkedHours).Div(in.ExpectedHours).Round(places)
	}
	fig.GrossPay = gross

	// Late deductions: monotone policy over period late minutes, never
	// exceeding gross pay.
	late := decimal.Zero
	if in.LatePolicy != nil && in.Totals.LateMinutes > 0 {
		late = in.LatePolicy.Deduct(in.Totals.LateMinutes).Round(places)
		if late.IsNegative() {
			late = decimal.Zero
		}
		if late.GreaterThan(gross) {
			late = gross
		}
	}
	fig.LateDeductions = late

	other := in.OtherDeductions
	if other.IsNegative() {
		other = decimal.Zero
	}
	fig.TotalDeductions = late.Add(other).Round(places)

	benefits := in.Benefits
	if benefits.IsNegative() {
		benefits = decimal.Zero
	}
	fig.TotalBenefits = benefits.Round(places)

	// Overtime-to-leave conversion.
	ratio := in.OvertimeToLeaveRatio
	if ratio.IsZero() {
		ratio = DefaultOvertimeToLeaveRatio
	}
	overtime := in.OvertimeHours
	if overtime.IsNegative() {
		overtime = decimal.Zero
	}
	fig.OvertimeToLeaveDays = overtime.Mul(ratio).Round(4)

	// Net pay: clamped at zero, clamp surfaced as a warning.
	net := gross.Sub(fig.TotalDeductions).Add(fig.TotalBenefits)
	if net.IsNegative() {
		fig.Warnings = append(fig.Warnings, Anomaly{
			Code:       AnomalyNegativeNetPay,
			EmployeeID: in.Totals.EmployeeID,
			Detail: fmt.Sprintf("net pay %s clamped to zero (gross %s, deductions %s, benefits %s)",
				net, gross, fig.TotalDeductions, fig.TotalBenefits),
		})
		net = decimal.Zero
	}
	fig.NetPay = net.Round(places)

	return fig
}
