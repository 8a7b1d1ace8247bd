/*
aggregate.go - Period aggregation of daily hour breakdowns

PURPOSE:
  Sums HoursBreakdowns across the days of a pay period for one employee,
  and across employees for period-level statistics. Aggregation is plain
  associative summation: totals are independent of day iteration order,
  so per-day computation can run in parallel and results merged in any
  order.

KEY DISTINCTION:
  WorkingDays counts days with TotalHours > 0; CalendarDays counts every
  day in the period. Gross pay prorates on hours, but reports show both.

SEE ALSO:
  - hours.go: Produces the per-day breakdowns consumed here
  - payroll.go: Consumes the aggregated totals
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// PERIOD TOTALS - One employee, one pay period
// =============================================================================

type PeriodTotals struct {
	EmployeeID EmployeeID
	Period     PayPeriod

	// WorkedHours is the exact (unrounded) sum of daily totals.
	WorkedHours decimal.Decimal

	// RegularHours equals WorkedHours for now: overtime classification
	// is a downstream payroll policy, not an aggregation concern.
	RegularHours decimal.Decimal

	MorningHours   decimal.Decimal
	AfternoonHours decimal.Decimal

	LateMinutes int64

	// WorkingDays: days with TotalHours > 0.
	WorkingDays  int
	CalendarDays int

	Anomalies []Anomaly
}

// NewPeriodTotals returns an empty accumulator for the employee-period.
func NewPeriodTotals(employee EmployeeID, period PayPeriod) PeriodTotals {
	return PeriodTotals{
		EmployeeID:     employee,
		Period:         period,
		WorkedHours:    decimal.Zero,
		RegularHours:   decimal.Zero,
		MorningHours:   decimal.Zero,
		AfternoonHours: decimal.Zero,
		CalendarDays:   period.CalendarDays(),
	}
}

// Add folds one day's breakdown into the totals. Associative with Merge;
// ordering of days does not affect the result.
func (t PeriodTotals) Add(b HoursBreakdown) PeriodTotals {
	t.WorkedHours = t.WorkedHours.Add(b.TotalHours)
	t.RegularHours = t.WorkedHours
	t.MorningHours = t.MorningHours.Add(b.Morning.Hours)
	t.AfternoonHours = t.AfternoonHours.Add(b.Afternoon.Hours)
	t.LateMinutes += int64(b.LateMinutes)
	if b.TotalHours.IsPositive() {
		t.WorkingDays++
	}
	t.Anomalies = append(t.Anomalies, b.Anomalies...)
	return t
}

// Merge combines two partial totals for the same employee-period.
func (t PeriodTotals) Merge(other PeriodTotals) PeriodTotals {
	t.WorkedHours = t.WorkedHours.Add(other.WorkedHours)
	t.RegularHours = t.WorkedHours
	t.MorningHours = t.MorningHours.Add(other.MorningHours)
	t.AfternoonHours = t.AfternoonHours.Add(other.AfternoonHours)
	t.LateMinutes += other.LateMinutes
	t.WorkingDays += other.WorkingDays
	t.Anomalies = append(t.Anomalies, other.Anomalies...)
	return t
}

// AggregatePeriod sums a slice of daily breakdowns.
func AggregatePeriod(employee EmployeeID, period PayPeriod, days []HoursBreakdown) PeriodTotals {
	totals := NewPeriodTotals(employee, period)
	for _, day := range days {
		totals = totals.Add(day)
	}
	return totals
}

// =============================================================================
// PERIOD STATISTICS - Across employees
// =============================================================================

type PeriodStatistics struct {
	Period           PayPeriod
	Employees        int
	TotalWorkedHours decimal.Decimal
	TotalLateMinutes int64
	TotalWorkingDays int
	AverageHours     decimal.Decimal
	AnomalyCount     int
}

// Statistics rolls employee totals up to period level.
func Statistics(period PayPeriod, totals []PeriodTotals) PeriodStatistics {
	stats := PeriodStatistics{
		Period:           period,
		Employees:        len(totals),
		TotalWorkedHours: decimal.Zero,
		AverageHours:     decimal.Zero,
	}
	for _, t := range totals {
		stats.TotalWorkedHours = stats.TotalWorkedHours.Add(t.WorkedHours)
		stats.TotalLateMinutes += t.LateMinutes
		stats.TotalWorkingDays += t.WorkingDays
		stats.AnomalyCount += len(t.Anomalies)
	}
	if stats.Employees > 0 {
		stats.AverageHours = stats.TotalWorkedHours.Div(decimal.NewFromInt(int64(stats.Employees)))
	}
	return stats
}
