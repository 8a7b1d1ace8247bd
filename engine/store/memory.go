// Package store provides PunchStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	punches     map[engine.EmployeeID][]engine.ClockEvent
	slots       map[slotKey]engine.PunchID
	idempotency map[string]bool
}

type slotKey struct {
	Employee engine.EmployeeID
	Day      string
	Label    engine.ClockLabel
}

func NewMemory() *Memory {
	return &Memory{
		punches:     make(map[engine.EmployeeID][]engine.ClockEvent),
		slots:       make(map[slotKey]engine.PunchID),
		idempotency: make(map[string]bool),
	}
}

// Append adds a single punch. Append-only.
func (m *Memory) Append(_ context.Context, event engine.ClockEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(event)
}

// AppendBatch adds multiple punches atomically.
func (m *Memory) AppendBatch(_ context.Context, events []engine.ClockEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all constraints first (atomic check)
	for _, e := range events {
		if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
			return engine.ErrDuplicateIdempotencyKey
		}
		if existing, ok := m.slots[slotOf(e)]; ok {
			return &engine.DuplicatePunchError{
				EmployeeID: e.EmployeeID,
				Label:      e.Label,
				Date:       e.Day(),
				ExistingID: existing,
			}
		}
	}

	for _, e := range events {
		if err := m.appendLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func slotOf(e engine.ClockEvent) slotKey {
	return slotKey{Employee: e.EmployeeID, Day: e.Day().String(), Label: e.Label}
}

func (m *Memory) appendLocked(e engine.ClockEvent) error {
	if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
		return engine.ErrDuplicateIdempotencyKey
	}
	if existing, ok := m.slots[slotOf(e)]; ok {
		return &engine.DuplicatePunchError{
			EmployeeID: e.EmployeeID,
			Label:      e.Label,
			Date:       e.Day(),
			ExistingID: existing,
		}
	}

	events := m.punches[e.EmployeeID]

	// Binary search for insertion point keeps reads sort-free.
	i := sort.Search(len(events), func(i int) bool {
		return events[i].At.After(e.At)
	})
	events = append(events, engine.ClockEvent{})
	copy(events[i+1:], events[i:])
	events[i] = e
	m.punches[e.EmployeeID] = events

	m.slots[slotOf(e)] = e.ID
	if e.IdempotencyKey != "" {
		m.idempotency[e.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) LoadDay(_ context.Context, employee engine.EmployeeID, day engine.Day) ([]engine.ClockEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.ClockEvent
	for _, e := range m.punches[employee] {
		if e.Day().Equal(day) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *Memory) LoadRange(_ context.Context, employee engine.EmployeeID, from, to engine.Day) ([]engine.ClockEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.ClockEvent
	for _, e := range m.punches[employee] {
		d := e.Day()
		if from.BeforeOrEqual(d) && d.BeforeOrEqual(to) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}
