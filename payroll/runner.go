/*
runner.go - Concurrent payroll run over a pay period

PURPOSE:
  Executes a payroll run: for every employee, assemble the period's
  sessions, compute daily hours, aggregate, and derive pay figures.
  Per-employee work is independent - no shared mutable state exists in
  the core - so the runner fans it out across a bounded worker pool and
  merges results deterministically (sorted by employee id).

FAILURE SEMANTICS:
  A session-source error for one employee fails the run: missing DATA
  degrades to zero hours, but a broken STORE is an operational fault,
  not a data anomaly. Data anomalies (bad punch ordering, clamped net
  pay) are collected into the result, never aborting the run.

EXAMPLE:
  runner := payroll.NewRunner(calc, ledger, engine.PayrollDeriver{})
  result, err := runner.Run(ctx, payroll.RunRequest{
      Period:    engine.MonthlyPeriod(2025, time.March),
      Employees: employees,
      Policy:    payroll.PerMinuteDeduction{Rate: rate},
  })

SEE ALSO:
  - engine/aggregate.go: Order-independent summation that makes the
    parallel fan-out safe
  - engine/payroll.go: The per-employee derivation
*/
package payroll

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// INPUTS
// =============================================================================

// SessionSource supplies one employee's sessions for a period.
// Implemented by attendance.Ledger; tests use in-memory fixtures.
type SessionSource interface {
	SessionsInPeriod(ctx context.Context, employee engine.EmployeeID, period engine.PayPeriod) ([]engine.DaySessions, error)
}

// EmployeeRecord carries the payroll inputs that live outside the
// attendance trail.
type EmployeeRecord struct {
	ID         engine.EmployeeID
	BaseSalary decimal.Decimal
	Benefits   decimal.Decimal
	Deductions decimal.Decimal
}

// RunRequest describes one payroll run.
type RunRequest struct {
	Period    engine.PayPeriod
	Employees []EmployeeRecord

	// ExpectedHours for the period. Zero means prorate from the
	// period's weekdays at 8 hours per day.
	ExpectedHours decimal.Decimal

	// OvertimeToLeaveRatio falls back to the engine default (0.125).
	OvertimeToLeaveRatio decimal.Decimal

	// Policy prices late minutes. Nil means no late deductions.
	Policy engine.DeductionPolicy

	// Workers bounds the pool. Zero means DefaultWorkers.
	Workers int
}

// DefaultWorkers bounds the fan-out when the request doesn't.
const DefaultWorkers = 8

// =============================================================================
// RESULTS
// =============================================================================

// EmployeeResult is one employee's outcome within a run.
type EmployeeResult struct {
	Totals  engine.PeriodTotals
	Figures engine.PayrollFigures
}

// RunResult is the outcome of a payroll run.
type RunResult struct {
	Period     engine.PayPeriod
	Results    []EmployeeResult
	Statistics engine.PeriodStatistics
}

// =============================================================================
// RUNNER
// =============================================================================

type Runner struct {
	calc    *engine.HoursCalculator
	source  SessionSource
	deriver engine.PayrollDeriver
}

func NewRunner(calc *engine.HoursCalculator, source SessionSource, deriver engine.PayrollDeriver) *Runner {
	return &Runner{calc: calc, source: source, deriver: deriver}
}

// Run executes the payroll run for every employee in the request.
// Output ordering is deterministic regardless of worker scheduling.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if !req.Period.IsValid() {
		return nil, engine.ErrInvalidPeriod
	}

	expected := req.ExpectedHours
	if expected.IsZero() {
		expected = req.Period.ExpectedHours(decimal.NewFromInt(8))
	}

	workers := req.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(req.Employees) {
		workers = len(req.Employees)
	}

	jobs := make(chan EmployeeRecord)
	results := make(chan EmployeeResult, len(req.Employees))
	errs := make(chan error, len(req.Employees))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for emp := range jobs {
				res, err := r.runEmployee(ctx, req, expected, emp)
				if err != nil {
					errs <- err
					continue
				}
				results <- res
			}
		}()
	}

	for _, emp := range req.Employees {
		jobs <- emp
	}
	close(jobs)
	wg.Wait()
	close(results)
	close(errs)

	if err := <-errs; err != nil {
		return nil, err
	}

	run := &RunResult{Period: req.Period}
	for res := range results {
		run.Results = append(run.Results, res)
	}
	sort.Slice(run.Results, func(i, j int) bool {
		return run.Results[i].Totals.EmployeeID < run.Results[j].Totals.EmployeeID
	})

	totals := make([]engine.PeriodTotals, len(run.Results))
	for i, res := range run.Results {
		totals[i] = res.Totals
	}
	run.Statistics = engine.Statistics(req.Period, totals)

	return run, nil
}

// RunEmployee computes one employee's totals and figures synchronously.
func (r *Runner) RunEmployee(ctx context.Context, req RunRequest, emp EmployeeRecord) (EmployeeResult, error) {
	expected := req.ExpectedHours
	if expected.IsZero() {
		expected = req.Period.ExpectedHours(decimal.NewFromInt(8))
	}
	return r.runEmployee(ctx, req, expected, emp)
}

func (r *Runner) runEmployee(ctx context.Context, req RunRequest, expected decimal.Decimal, emp EmployeeRecord) (EmployeeResult, error) {
	days, err := r.source.SessionsInPeriod(ctx, emp.ID, req.Period)
	if err != nil {
		return EmployeeResult{}, err
	}

	totals := engine.NewPeriodTotals(emp.ID, req.Period)
	for _, day := range days {
		breakdown := r.calc.ComputeDay(emp.ID, day.Date, day.Sessions)
		breakdown.Anomalies = append(breakdown.Anomalies, day.Anomalies...)
		totals = totals.Add(breakdown)
	}

	figures := r.deriver.Derive(engine.PayrollInput{
		Totals:               totals,
		BaseSalary:           emp.BaseSalary,
		ExpectedHours:        expected,
		OvertimeHours:        engine.ClassifyOvertime(totals.WorkedHours, expected),
		OvertimeToLeaveRatio: req.OvertimeToLeaveRatio,
		Benefits:             emp.Benefits,
		OtherDeductions:      emp.Deductions,
		LatePolicy:           req.Policy,
	})

	return EmployeeResult{Totals: totals, Figures: figures}, nil
}
