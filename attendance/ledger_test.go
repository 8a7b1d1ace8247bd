package attendance_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*attendance.Ledger, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ledger := attendance.NewLedger(store, engine.DefaultSchedule())
	return ledger, store
}

var march10 = engine.NewDay(2025, time.March, 10)

func punch(id, emp string, label engine.ClockLabel, hour, minute int, key string) engine.ClockEvent {
	return engine.ClockEvent{
		ID:             engine.PunchID(id),
		EmployeeID:     engine.EmployeeID(emp),
		Label:          label,
		At:             march10.At(engine.NewClockTime(hour, minute)),
		Source:         "terminal",
		IdempotencyKey: key,
	}
}

// =============================================================================
// SLOT UNIQUENESS
// =============================================================================

func TestLedger_DuplicateSlot_Rejected(t *testing.T) {
	// GIVEN: Employee already clocked morning-in on March 10
	// WHEN: A second morning-in arrives for the same day
	// THEN: It is rejected with DuplicatePunchError

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	err := ledger.RecordPunch(ctx, punch("p-1", "emp-1", engine.LabelMorningIn, 8, 0, "k-1"))
	assert.NoError(t, err, "first punch should succeed")

	err = ledger.RecordPunch(ctx, punch("p-2", "emp-1", engine.LabelMorningIn, 8, 5, "k-2"))
	assert.Error(t, err, "second morning-in on the same day should be rejected")
	assert.ErrorIs(t, err, engine.ErrDuplicatePunch)

	var dupErr *engine.DuplicatePunchError
	if assert.ErrorAs(t, err, &dupErr) {
		assert.Equal(t, engine.LabelMorningIn, dupErr.Label)
		assert.Equal(t, march10.String(), dupErr.Date.String())
	}
}

func TestLedger_SameSlot_DifferentDay_Allowed(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.RecordPunch(ctx, punch("p-1", "emp-1", engine.LabelMorningIn, 8, 0, "k-1")))

	next := punch("p-2", "emp-1", engine.LabelMorningIn, 8, 0, "k-2")
	next.At = next.At.AddDate(0, 0, 1)
	assert.NoError(t, ledger.RecordPunch(ctx, next), "same slot on the next day is a new slot")
}

func TestLedger_SameSlot_DifferentEmployee_Allowed(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.RecordPunch(ctx, punch("p-1", "emp-1", engine.LabelMorningIn, 8, 0, "k-1")))
	assert.NoError(t, ledger.RecordPunch(ctx, punch("p-2", "emp-2", engine.LabelMorningIn, 8, 0, "k-2")))
}

// =============================================================================
// IDEMPOTENCY
// =============================================================================

func TestLedger_IdempotentRetry_Rejected(t *testing.T) {
	// GIVEN: A punch recorded under key "retry-1"
	// WHEN: The terminal retries with the same key (different punch id)
	// THEN: The retry is rejected with ErrDuplicateIdempotencyKey

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.RecordPunch(ctx, punch("p-1", "emp-1", engine.LabelMorningIn, 8, 0, "retry-1")))

	retry := punch("p-2", "emp-1", engine.LabelMorningOut, 12, 0, "retry-1")
	err := ledger.RecordPunch(ctx, retry)
	assert.ErrorIs(t, err, engine.ErrDuplicateIdempotencyKey)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestLedger_RejectsIncompletePunches(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	noEmployee := punch("p-1", "", engine.LabelMorningIn, 8, 0, "")
	assert.ErrorIs(t, ledger.RecordPunch(ctx, noEmployee), engine.ErrInvalidPunch)

	noTimestamp := punch("p-2", "emp-1", engine.LabelMorningIn, 8, 0, "")
	noTimestamp.At = time.Time{}
	assert.ErrorIs(t, ledger.RecordPunch(ctx, noTimestamp), engine.ErrInvalidPunch)

	badLabel := punch("p-3", "emp-1", "lunch_in", 8, 0, "")
	assert.ErrorIs(t, ledger.RecordPunch(ctx, badLabel), engine.ErrInvalidPunch)
}

func TestLedger_OffsetPunch_BucketsByUTCDay(t *testing.T) {
	// GIVEN: A punch captured as March 10 00:30 at UTC+9 (15:30 UTC on
	//        March 9)
	// THEN: It lands on March 9 - the punch's UTC day, not its local one

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	tokyo := time.FixedZone("UTC+9", 9*3600)
	e := punch("p-1", "emp-1", engine.LabelAfternoonOut, 0, 0, "")
	e.At = time.Date(2025, time.March, 10, 0, 30, 0, 0, tokyo)
	require.NoError(t, ledger.RecordPunch(ctx, e))

	march9 := engine.NewDay(2025, time.March, 9)
	events, err := ledger.Punches(ctx, "emp-1", march9, march9)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].At.Equal(e.At), "the instant itself is preserved")

	onLocalDay, err := ledger.Punches(ctx, "emp-1", march10, march10)
	require.NoError(t, err)
	assert.Empty(t, onLocalDay, "nothing credited to the local-offset day")

	set, _, err := ledger.SessionsForDay(ctx, "emp-1", march9)
	require.NoError(t, err)
	assert.NotNil(t, set.AfternoonOut)
}

// =============================================================================
// LABEL INFERENCE
// =============================================================================

func TestLedger_UnlabeledPunches_InferredFromSchedule(t *testing.T) {
	// GIVEN: A wall terminal sending four bare timestamps through the day
	// WHEN: Each is recorded without a label
	// THEN: They land in the four slots in workday order and the day
	//       computes a full 8 hours

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	times := []struct {
		hour, minute int
	}{
		{7, 58}, // before break: morning-in
		{12, 2}, // inside break, morning open: morning-out
		{13, 1}, // after break: afternoon-in
		{17, 5}, // after break, afternoon open: afternoon-out
	}
	for i, tm := range times {
		e := punch(fmt.Sprintf("p-%d", i+1), "emp-1", "", tm.hour, tm.minute, "")
		require.NoError(t, ledger.RecordPunch(ctx, e))
	}

	set, anomalies, err := ledger.SessionsForDay(ctx, "emp-1", march10)
	require.NoError(t, err)
	assert.Empty(t, anomalies)

	require.NotNil(t, set.MorningIn)
	require.NotNil(t, set.MorningOut)
	require.NotNil(t, set.AfternoonIn)
	require.NotNil(t, set.AfternoonOut)

	calc, err := engine.NewCalculator(engine.DefaultSchedule())
	require.NoError(t, err)
	b := calc.ComputeDay("emp-1", march10, set)
	assert.Equal(t, int64(8), b.WholeHours())
}

func TestInferLabel_DuringBreak_WithNoOpenMorning_OpensAfternoon(t *testing.T) {
	cfg := engine.DefaultSchedule()

	label := attendance.InferLabel(cfg, engine.SessionSet{}, march10.At(engine.NewClockTime(12, 30)))
	assert.Equal(t, engine.LabelAfternoonIn, label,
		"a break-time punch with no open morning starts the afternoon")
}

func TestInferLabel_AfternoonPunches(t *testing.T) {
	cfg := engine.DefaultSchedule()

	first := attendance.InferLabel(cfg, engine.SessionSet{}, march10.At(engine.NewClockTime(14, 0)))
	assert.Equal(t, engine.LabelAfternoonIn, first)

	in := march10.At(engine.NewClockTime(13, 0))
	withIn := engine.SessionSet{AfternoonIn: &in}
	second := attendance.InferLabel(cfg, withIn, march10.At(engine.NewClockTime(17, 0)))
	assert.Equal(t, engine.LabelAfternoonOut, second)
}

// =============================================================================
// SESSION ASSEMBLY
// =============================================================================

func TestLedger_SessionsInPeriod_IncludesEmptyDays(t *testing.T) {
	// GIVEN: A 5-day period with punches on one day only
	// THEN: Five DaySessions come back - absences must be visible to the
	//       aggregation, not silently skipped

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.RecordPunch(ctx, punch("p-1", "emp-1", engine.LabelMorningIn, 8, 0, "")))
	require.NoError(t, ledger.RecordPunch(ctx, punch("p-2", "emp-1", engine.LabelMorningOut, 12, 0, "")))

	period := engine.PayPeriod{Start: march10, End: march10.AddDays(4)}
	days, err := ledger.SessionsInPeriod(ctx, "emp-1", period)
	require.NoError(t, err)

	require.Len(t, days, 5)
	assert.False(t, days[0].Sessions.IsEmpty(), "March 10 has punches")
	for _, d := range days[1:] {
		assert.True(t, d.Sessions.IsEmpty(), "day %s should be empty", d.Date)
	}
}

func TestLedger_Punches_ReturnsChronologicalTrail(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	// Recorded out of order.
	require.NoError(t, ledger.RecordPunch(ctx, punch("p-2", "emp-1", engine.LabelMorningOut, 12, 0, "")))
	require.NoError(t, ledger.RecordPunch(ctx, punch("p-1", "emp-1", engine.LabelMorningIn, 8, 0, "")))

	events, err := ledger.Punches(ctx, "emp-1", march10, march10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, engine.LabelMorningIn, events[0].Label, "trail is ordered by punch time")
	assert.Equal(t, engine.LabelMorningOut, events[1].Label)
}
