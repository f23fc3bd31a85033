// Package event holds the interrupt-overlay state rules. Everything here is a
// pure function of the stored event and the current time, so every client
// reaches the same verdict from the same endTime.
package event

import (
	"teamquest/internal/model"
	"time"
)

// State of an event scope
type State string

const (
	Idle          State = "idle"
	ActiveUntimed State = "active_untimed"
	ActiveTimed   State = "active_timed"
	Expired       State = "expired"
)

// Status is the derived view of a scope at a given instant
type Status struct {
	State       State           `json:"state"`
	EventType   model.EventType `json:"eventType,omitempty"`
	EndTime     *time.Time      `json:"endTime,omitempty"`
	Remaining   time.Duration   `json:"-"`
	RemainingMs int64           `json:"remainingMs"`
}

// StateOf classifies ev at now
func StateOf(ev *model.TeamEvent, now time.Time) State {
	switch {
	case ev == nil:
		return Idle
	case ev.EndTime == nil:
		return ActiveUntimed
	case IsExpired(*ev.EndTime, now):
		return Expired
	default:
		return ActiveTimed
	}
}

// Describe returns the full status of ev at now
func Describe(ev *model.TeamEvent, now time.Time) Status {
	st := Status{State: StateOf(ev, now)}
	if ev == nil {
		return st
	}
	st.EventType = ev.Type
	if ev.EndTime != nil {
		end := *ev.EndTime
		st.EndTime = &end
		st.Remaining = Remaining(end, now)
		st.RemainingMs = st.Remaining.Milliseconds()
	}
	return st
}

// Remaining is the time left until endTime, never negative
func Remaining(endTime, now time.Time) time.Duration {
	d := endTime.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// IsExpired reports endTime <= now
func IsExpired(endTime, now time.Time) bool {
	return !endTime.After(now)
}

// Start builds a fresh event. Timer-requiring types get an end time when
// minutes is positive; everything else waits for an admin release.
func Start(typ model.EventType, minutes int, now time.Time) *model.TeamEvent {
	ev := &model.TeamEvent{Type: typ, StartedAt: now}
	if typ.RequiresTimer() && minutes > 0 {
		end := now.Add(time.Duration(minutes) * time.Minute)
		ev.EndTime = &end
	}
	return ev
}

// Toggle applies an admin toggle: the same type switches the scope off,
// anything else replaces it.
func Toggle(current *model.TeamEvent, typ model.EventType, minutes int, now time.Time) *model.TeamEvent {
	if current != nil && current.Type == typ {
		return nil
	}
	return Start(typ, minutes, now)
}

// Identity distinguishes one showing of an event from the next, so watchers
// re-arm when an admin replaces it.
func Identity(ev *model.TeamEvent) string {
	if ev == nil {
		return ""
	}
	id := string(ev.Type) + "@" + ev.StartedAt.UTC().Format(time.RFC3339Nano)
	if ev.EndTime != nil {
		id += "/" + ev.EndTime.UTC().Format(time.RFC3339Nano)
	}
	return id
}
