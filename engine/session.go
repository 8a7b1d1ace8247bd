package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// SESSION SET - One employee-day of raw punches
// =============================================================================

// SessionSet is the raw input for one employee on one calendar day:
// up to four optional timestamps. Any subset may be present; a clock-in
// with no matching clock-out is a valid partial state.
// Immutable once handed to the calculator.
type SessionSet struct {
	MorningIn    *time.Time
	MorningOut   *time.Time
	AfternoonIn  *time.Time
	AfternoonOut *time.Time
}

// IsEmpty reports whether no punches are present.
func (s SessionSet) IsEmpty() bool {
	return s.MorningIn == nil && s.MorningOut == nil &&
		s.AfternoonIn == nil && s.AfternoonOut == nil
}

// Punch returns the timestamp for the given label, or nil.
func (s SessionSet) Punch(label ClockLabel) *time.Time {
	switch label {
	case LabelMorningIn:
		return s.MorningIn
	case LabelMorningOut:
		return s.MorningOut
	case LabelAfternoonIn:
		return s.AfternoonIn
	case LabelAfternoonOut:
		return s.AfternoonOut
	}
	return nil
}

// WithPunch returns a copy with the labeled slot set.
func (s SessionSet) WithPunch(label ClockLabel, at time.Time) SessionSet {
	t := at
	switch label {
	case LabelMorningIn:
		s.MorningIn = &t
	case LabelMorningOut:
		s.MorningOut = &t
	case LabelAfternoonIn:
		s.AfternoonIn = &t
	case LabelAfternoonOut:
		s.AfternoonOut = &t
	}
	return s
}

// DaySessions pairs a calendar day with its assembled SessionSet.
type DaySessions struct {
	Date      Day
	Sessions  SessionSet
	Anomalies []Anomaly
}

// =============================================================================
// EVENT ASSEMBLY - Punches to SessionSet
// =============================================================================

// SessionSetFromEvents assembles a SessionSet from a day's punches.
// When multiple punches carry the same label the earliest wins and a
// duplicate-label anomaly is recorded; the day still computes.
func SessionSetFromEvents(events []ClockEvent) (SessionSet, []Anomaly) {
	var set SessionSet
	var anomalies []Anomaly

	for _, e := range events {
		if !e.Label.Valid() {
			continue
		}
		existing := set.Punch(e.Label)
		if existing == nil {
			set = set.WithPunch(e.Label, e.At)
			continue
		}
		if e.At.Before(*existing) {
			// Earliest punch wins the slot; the later one is the duplicate.
			set = set.WithPunch(e.Label, e.At)
		}
		anomalies = append(anomalies, Anomaly{
			Code:       AnomalyDuplicateLabel,
			EmployeeID: e.EmployeeID,
			Date:       e.Day(),
			Detail:     fmt.Sprintf("slot %s already filled, extra punch at %s ignored", e.Label, e.At.Format("15:04")),
		})
	}
	return set, anomalies
}
