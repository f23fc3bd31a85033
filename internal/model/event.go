package model

import "time"

// EventType identifies an admin-triggered interrupt overlay.
type EventType string

const (
	EventBreak        EventType = "BREAK"
	EventLunch        EventType = "LUNCH"
	EventBirthday     EventType = "BIRTHDAY"
	EventEnergizer    EventType = "ENERGIZER"
	EventAnnouncement EventType = "ANNOUNCEMENT"
	EventCelebration  EventType = "CELEBRATION"
)

var eventTypes = map[EventType]bool{
	EventBreak:        true,
	EventLunch:        true,
	EventBirthday:     true,
	EventEnergizer:    true,
	EventAnnouncement: true,
	EventCelebration:  true,
}

// Valid reports whether e is a known event type.
func (e EventType) Valid() bool {
	return eventTypes[e]
}

// RequiresTimer reports whether the event counts down and expires on its own.
func (e EventType) RequiresTimer() bool {
	return e == EventBreak || e == EventLunch
}

// TeamEvent is the overlay currently shown to one team.
// A nil EndTime means the event stays up until an admin releases it.
type TeamEvent struct {
	Type      EventType  `json:"eventType" bson:"eventType"`
	StartedAt time.Time  `json:"startedAt" bson:"startedAt"`
	EndTime   *time.Time `json:"endTime,omitempty" bson:"endTime,omitempty"`
}

// Clone deep-copies an event.
func (e *TeamEvent) Clone() *TeamEvent {
	if e == nil {
		return nil
	}
	out := *e
	if e.EndTime != nil {
		t := *e.EndTime
		out.EndTime = &t
	}
	return &out
}
