/*
ledger.go - Attendance punch ledger with slot uniqueness enforcement

PURPOSE:
  Wraps a PunchStore with attendance-specific business rules. The
  critical invariant: one punch per label slot per employee-day. An
  employee cannot clock morning-in twice on March 10th.

WHY A WRAPPER?
  The store only persists events. This wrapper adds what the capture
  side needs: label validation, label inference for dumb terminals that
  send bare timestamps, idempotent retries, and assembly of a day's
  punches into the SessionSet the hours calculator consumes.

LABEL INFERENCE:
  Wall terminals send (employee, timestamp) with no label. The schedule
  decides the slot:
  - before the midday break: morning-in, then morning-out
  - after the break:         afternoon-in, then afternoon-out
  - during the break:        closes the morning if it is open,
                             otherwise opens the afternoon

ERROR HANDLING:
  DuplicatePunchError for filled slots, ErrDuplicateIdempotencyKey for
  retries. Both are client errors, not batch-fatal.

EXAMPLE:
  ledger := attendance.NewLedger(store, cfg)
  err := ledger.RecordPunch(ctx, event)
  if errors.Is(err, engine.ErrDuplicatePunch) {
      // slot already filled - reject at the terminal
  }

SEE ALSO:
  - engine/store.go: PunchStore interface
  - engine/session.go: SessionSet assembly
*/
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// LEDGER - Punch capture with domain rules
// =============================================================================

type Ledger struct {
	store engine.PunchStore
	cfg   engine.ScheduleConfig
}

// NewLedger creates an attendance ledger over the given store.
// The schedule config drives label inference only; hour computation
// happens in the engine, not here.
func NewLedger(store engine.PunchStore, cfg engine.ScheduleConfig) *Ledger {
	return &Ledger{store: store, cfg: cfg}
}

// RecordPunch validates and persists one punch. An empty label is
// inferred from the punch time and the day's existing punches.
func (l *Ledger) RecordPunch(ctx context.Context, event engine.ClockEvent) error {
	if event.EmployeeID == "" {
		return fmt.Errorf("%w: employee id required", engine.ErrInvalidPunch)
	}
	if event.At.IsZero() {
		return fmt.Errorf("%w: timestamp required", engine.ErrInvalidPunch)
	}
	// Normalize at the boundary: day bucketing, label inference, and
	// every store all see the same UTC instant.
	event.At = event.At.UTC()

	if event.IdempotencyKey != "" {
		exists, err := l.store.Exists(ctx, event.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return engine.ErrDuplicateIdempotencyKey
		}
	}

	if event.Label == "" {
		inferred, err := l.inferLabel(ctx, event)
		if err != nil {
			return err
		}
		event.Label = inferred
	}
	if !event.Label.Valid() {
		return fmt.Errorf("%w: unrecognized label %q", engine.ErrInvalidPunch, event.Label)
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	return l.store.Append(ctx, event)
}

// Punches returns an employee's raw punches in [from, to].
func (l *Ledger) Punches(ctx context.Context, employee engine.EmployeeID, from, to engine.Day) ([]engine.ClockEvent, error) {
	return l.store.LoadRange(ctx, employee, from, to)
}

// =============================================================================
// SESSION ASSEMBLY - Punches to calculator input
// =============================================================================

// SessionsForDay assembles one employee-day of punches into a SessionSet.
func (l *Ledger) SessionsForDay(ctx context.Context, employee engine.EmployeeID, day engine.Day) (engine.SessionSet, []engine.Anomaly, error) {
	events, err := l.store.LoadDay(ctx, employee, day)
	if err != nil {
		return engine.SessionSet{}, nil, err
	}
	set, anomalies := engine.SessionSetFromEvents(events)
	return set, anomalies, nil
}

// SessionsInPeriod assembles every day of a pay period. Days with no
// punches are included with an empty SessionSet: absent data is data.
func (l *Ledger) SessionsInPeriod(ctx context.Context, employee engine.EmployeeID, period engine.PayPeriod) ([]engine.DaySessions, error) {
	events, err := l.store.LoadRange(ctx, employee, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]engine.ClockEvent)
	for _, e := range events {
		k := e.Day().String()
		byDay[k] = append(byDay[k], e)
	}

	days := period.Days()
	result := make([]engine.DaySessions, 0, len(days))
	for _, day := range days {
		set, anomalies := engine.SessionSetFromEvents(byDay[day.String()])
		result = append(result, engine.DaySessions{Date: day, Sessions: set, Anomalies: anomalies})
	}
	return result, nil
}

// =============================================================================
// LABEL INFERENCE
// =============================================================================

func (l *Ledger) inferLabel(ctx context.Context, event engine.ClockEvent) (engine.ClockLabel, error) {
	set, _, err := l.SessionsForDay(ctx, event.EmployeeID, event.Day())
	if err != nil {
		return "", err
	}
	return InferLabel(l.cfg, set, event.At), nil
}

// InferLabel picks the slot an unlabeled punch fills, given the day's
// punches so far. Pure; exported for capture frontends that label
// before submitting.
func InferLabel(cfg engine.ScheduleConfig, set engine.SessionSet, at time.Time) engine.ClockLabel {
	c := engine.ClockTimeOf(at)

	switch {
	case c.Before(cfg.BreakStart):
		if set.MorningIn == nil {
			return engine.LabelMorningIn
		}
		return engine.LabelMorningOut
	case c.After(cfg.BreakEnd):
		if set.AfternoonIn == nil {
			return engine.LabelAfternoonIn
		}
		return engine.LabelAfternoonOut
	default:
		// Inside the break: close the morning if it is open.
		if set.MorningIn != nil && set.MorningOut == nil {
			return engine.LabelMorningOut
		}
		return engine.LabelAfternoonIn
	}
}
