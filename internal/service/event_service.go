package service

import (
	"context"
	"fmt"
	"teamquest/internal/event"
	"teamquest/internal/model"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// EventService coordinates the interrupt overlay shown to each team. The
// per-team currentEvent is the only stored scope; room-wide events are a
// fan-out over every team in one document write.
type EventService struct {
	rooms RoomStore
	clock clockwork.Clock
}

// NewEventService creates a new event service
func NewEventService(rooms RoomStore, clock clockwork.Clock) *EventService {
	return &EventService{
		rooms: rooms,
		clock: clock,
	}
}

// ToggleTeamEvent switches typ on for a team, or off if it is already showing
func (s *EventService) ToggleTeamEvent(ctx context.Context, roomID string, teamID int, typ model.EventType, minutes int) (*model.TeamEvent, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEventType, typ)
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasTeamID(teamID) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTeam, teamID)
	}

	team := room.EnsureTeam(teamID)
	team.CurrentEvent = event.Toggle(team.CurrentEvent, typ, minutes, s.clock.Now().UTC())

	if err := s.rooms.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	log.Info().
		Str("room_id", roomID).
		Int("team_id", teamID).
		Str("event_type", string(typ)).
		Bool("active", team.CurrentEvent != nil).
		Msg("team event toggled")
	return team.CurrentEvent.Clone(), nil
}

// ToggleAllTeamsEvent applies typ to every team. If every team already shows
// typ, all of them go idle instead. Every team gets the same end time.
func (s *EventService) ToggleAllTeamsEvent(ctx context.Context, roomID string, typ model.EventType, minutes int) (*model.TeamEvent, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEventType, typ)
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	allShowing := true
	for id := 1; id <= room.TotalTeams; id++ {
		if t := room.Team(id); t == nil || t.CurrentEvent == nil || t.CurrentEvent.Type != typ {
			allShowing = false
			break
		}
	}

	var next *model.TeamEvent
	if !allShowing {
		next = event.Start(typ, minutes, s.clock.Now().UTC())
	}
	for id := 1; id <= room.TotalTeams; id++ {
		room.EnsureTeam(id).CurrentEvent = next.Clone()
	}

	if err := s.rooms.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	log.Info().
		Str("room_id", roomID).
		Str("event_type", string(typ)).
		Bool("active", next != nil).
		Int("teams", room.TotalTeams).
		Msg("room-wide event toggled")
	return next, nil
}

// EndTeamEvent is the learner-side dismissal. Only an expired timed event can
// be dismissed; an idle scope makes this a no-op so repeated calls from
// several clients are harmless.
func (s *EventService) EndTeamEvent(ctx context.Context, roomID string, teamID int) error {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	team := room.Team(teamID)
	if team == nil {
		return nil
	}

	switch event.StateOf(team.CurrentEvent, s.clock.Now()) {
	case event.Idle:
		return nil
	case event.ActiveUntimed:
		return ErrEventNotDismissible
	case event.ActiveTimed:
		return ErrEventNotExpired
	}

	team.CurrentEvent = nil
	if err := s.rooms.SaveRoom(ctx, room); err != nil {
		return err
	}
	log.Debug().Str("room_id", roomID).Int("team_id", teamID).Msg("expired event dismissed")
	return nil
}

// ReleaseTeamEvent is the admin release: any state goes idle
func (s *EventService) ReleaseTeamEvent(ctx context.Context, roomID string, teamID int) error {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	team := room.Team(teamID)
	if team == nil || team.CurrentEvent == nil {
		return nil
	}
	team.CurrentEvent = nil
	return s.rooms.SaveRoom(ctx, room)
}

// TeamEventState derives the current state of a team's event
func (s *EventService) TeamEventState(ctx context.Context, roomID string, teamID int) (event.Status, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return event.Status{}, err
	}
	var current *model.TeamEvent
	if team := room.Team(teamID); team != nil {
		current = team.CurrentEvent
	}
	return event.Describe(current, s.clock.Now()), nil
}
