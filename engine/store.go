/*
store.go - Persistence interface for the punch ledger

PURPOSE:
  Defines the interface between attendance capture and the database.
  Punches are APPEND-ONLY: a mistaken punch is corrected by an admin
  punch with a new idempotency key, never by editing history. Attendance
  records feed payroll, so the raw punch trail must stay auditable.

IDEMPOTENCY:
  Every write carries an idempotency key. A repeated key is rejected
  with ErrDuplicateIdempotencyKey, which makes terminal retries and
  double-taps safe.

SLOT UNIQUENESS:
  One punch per label per employee-day. Implementations return
  *DuplicatePunchError when a slot is already filled.

IMPLEMENTATIONS:
  - store/sqlite: production store
  - engine/store: in-memory store for tests and development

SEE ALSO:
  - attendance/ledger.go: Domain wrapper adding label inference
*/
package engine

import "context"

// =============================================================================
// PUNCH STORE - Append-only clock event persistence
// =============================================================================

type PunchStore interface {
	// Append persists one punch. Fails on duplicate idempotency key or
	// an already-filled label slot. The ONLY write operation.
	Append(ctx context.Context, event ClockEvent) error

	// AppendBatch persists punches atomically: all or none.
	AppendBatch(ctx context.Context, events []ClockEvent) error

	// LoadDay returns an employee's punches for one calendar day,
	// ordered by punch time.
	LoadDay(ctx context.Context, employee EmployeeID, day Day) ([]ClockEvent, error)

	// LoadRange returns punches in [from, to], ordered by punch time.
	LoadRange(ctx context.Context, employee EmployeeID, from, to Day) ([]ClockEvent, error)

	// Exists checks whether an idempotency key was already used.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}
