package payroll_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/engine/store"
	"github.com/warp/attendance-engine/payroll"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fixture seeds a memory-backed ledger with one week of full days for
// each employee, staggering lateness so figures differ per employee.
func fixture(t *testing.T, employeeCount int) (*attendance.Ledger, []payroll.EmployeeRecord) {
	t.Helper()

	mem := store.NewMemory()
	ledger := attendance.NewLedger(mem, engine.DefaultSchedule())
	ctx := context.Background()

	monday := engine.NewDay(2025, time.March, 10)
	var records []payroll.EmployeeRecord

	for n := 0; n < employeeCount; n++ {
		emp := engine.EmployeeID(fmt.Sprintf("emp-%03d", n))
		lateMinutes := (n % 4) * 20 // 0, 20, 40, 60

		for d := 0; d < 5; d++ {
			day := monday.AddDays(d)
			stamps := []struct {
				label engine.ClockLabel
				at    engine.ClockTime
			}{
				{engine.LabelMorningIn, engine.NewClockTime(8, 0).AddMinutes(lateMinutes)},
				{engine.LabelMorningOut, engine.NewClockTime(12, 0)},
				{engine.LabelAfternoonIn, engine.NewClockTime(13, 0)},
				{engine.LabelAfternoonOut, engine.NewClockTime(17, 0)},
			}
			for _, s := range stamps {
				err := ledger.RecordPunch(ctx, engine.ClockEvent{
					ID:         engine.PunchID(fmt.Sprintf("%s-%s-%s", emp, day, s.label)),
					EmployeeID: emp,
					Label:      s.label,
					At:         day.At(s.at),
					Source:     "fixture",
				})
				require.NoError(t, err)
			}
		}

		records = append(records, payroll.EmployeeRecord{
			ID:         emp,
			BaseSalary: engine.MustParseDecimal("3000"),
		})
	}

	return ledger, records
}

func newRunner(t *testing.T, source payroll.SessionSource) *payroll.Runner {
	t.Helper()
	calc, err := engine.NewCalculator(engine.DefaultSchedule())
	require.NoError(t, err)
	return payroll.NewRunner(calc, source, engine.PayrollDeriver{})
}

// =============================================================================
// CONCURRENT RUN
// =============================================================================

func TestRunner_Run_DeterministicAcrossWorkerCounts(t *testing.T) {
	// GIVEN: The same punches run with 1 worker and with 16 workers
	// THEN: Identical figures in identical order - aggregation is
	//       order-independent and results are sorted by employee id

	ledger, records := fixture(t, 24)
	runner := newRunner(t, ledger)

	req := payroll.RunRequest{
		Period:    engine.MonthlyPeriod(2025, time.March),
		Employees: records,
		Policy:    payroll.PerMinuteDeduction{Rate: engine.MustParseDecimal("0.50")},
	}

	req.Workers = 1
	serial, err := runner.Run(context.Background(), req)
	require.NoError(t, err)

	req.Workers = 16
	parallel, err := runner.Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, parallel.Results, 24)
	require.Len(t, serial.Results, 24)

	for i := range serial.Results {
		s, p := serial.Results[i], parallel.Results[i]
		assert.Equal(t, s.Totals.EmployeeID, p.Totals.EmployeeID)
		assert.True(t, s.Figures.NetPay.Equal(p.Figures.NetPay),
			"%s: net pay %s vs %s", s.Totals.EmployeeID, s.Figures.NetPay, p.Figures.NetPay)
		assert.Equal(t, s.Totals.LateMinutes, p.Totals.LateMinutes)
	}
}

func TestRunner_Run_ResultsSortedByEmployee(t *testing.T) {
	ledger, records := fixture(t, 10)
	runner := newRunner(t, ledger)

	result, err := runner.Run(context.Background(), payroll.RunRequest{
		Period:    engine.MonthlyPeriod(2025, time.March),
		Employees: records,
	})
	require.NoError(t, err)

	for i := 1; i < len(result.Results); i++ {
		assert.Less(t, string(result.Results[i-1].Totals.EmployeeID), string(result.Results[i].Totals.EmployeeID))
	}
}

func TestRunner_Run_LatenessFlowsIntoDeductions(t *testing.T) {
	// Employees with staggered lateness: the 20-minute-late employee
	// stays inside grace (no deduction), the 40-minute one does not.

	ledger, records := fixture(t, 4)
	runner := newRunner(t, ledger)

	result, err := runner.Run(context.Background(), payroll.RunRequest{
		Period:    engine.MonthlyPeriod(2025, time.March),
		Employees: records,
		Policy:    payroll.PerMinuteDeduction{Rate: engine.MustParseDecimal("1")},
	})
	require.NoError(t, err)
	require.Len(t, result.Results, 4)

	inGrace := result.Results[1] // 20 min late daily, within the 30 min grace
	assert.Zero(t, inGrace.Totals.LateMinutes)
	assert.True(t, inGrace.Figures.LateDeductions.IsZero())

	beyondGrace := result.Results[2] // 40 min late daily, 5 days
	assert.Equal(t, int64(200), beyondGrace.Totals.LateMinutes)
	assert.True(t, beyondGrace.Figures.LateDeductions.Equal(engine.MustParseDecimal("200")))
}

func TestRunner_Run_InvalidPeriodRejected(t *testing.T) {
	ledger, records := fixture(t, 1)
	runner := newRunner(t, ledger)

	_, err := runner.Run(context.Background(), payroll.RunRequest{
		Period: engine.PayPeriod{
			Start: engine.NewDay(2025, time.March, 31),
			End:   engine.NewDay(2025, time.March, 1),
		},
		Employees: records,
	})
	assert.ErrorIs(t, err, engine.ErrInvalidPeriod)
}

type failingSource struct{}

func (failingSource) SessionsInPeriod(context.Context, engine.EmployeeID, engine.PayPeriod) ([]engine.DaySessions, error) {
	return nil, errors.New("store unavailable")
}

func TestRunner_Run_StoreFailureFailsTheRun(t *testing.T) {
	// Missing DATA degrades to zero hours, but a broken STORE must fail
	// the run rather than silently paying zeroes.

	runner := newRunner(t, failingSource{})

	_, err := runner.Run(context.Background(), payroll.RunRequest{
		Period:    engine.MonthlyPeriod(2025, time.March),
		Employees: []payroll.EmployeeRecord{{ID: "emp-1"}},
	})
	assert.Error(t, err)
}

func TestRunner_Run_Statistics(t *testing.T) {
	ledger, records := fixture(t, 3)
	runner := newRunner(t, ledger)

	result, err := runner.Run(context.Background(), payroll.RunRequest{
		Period:    engine.MonthlyPeriod(2025, time.March),
		Employees: records,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Statistics.Employees)
	assert.Equal(t, 15, result.Statistics.TotalWorkingDays, "3 employees x 5 worked days")
	assert.True(t, result.Statistics.TotalWorkedHours.IsPositive())
}

func TestRunner_RunEmployee_MatchesBatchResult(t *testing.T) {
	ledger, records := fixture(t, 2)
	runner := newRunner(t, ledger)

	req := payroll.RunRequest{
		Period:    engine.MonthlyPeriod(2025, time.March),
		Employees: records,
	}

	batch, err := runner.Run(context.Background(), req)
	require.NoError(t, err)

	single, err := runner.RunEmployee(context.Background(), req, records[0])
	require.NoError(t, err)

	assert.True(t, single.Figures.NetPay.Equal(batch.Results[0].Figures.NetPay))
	assert.True(t, single.Totals.WorkedHours.Equal(batch.Results[0].Totals.WorkedHours))
}
