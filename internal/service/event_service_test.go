package service

import (
	"teamquest/internal/event"
	"teamquest/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleTeamEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 3)
	svc := NewEventService(f.store, f.clock)

	ev, err := svc.ToggleTeamEvent(f.ctx, f.room, 2, model.EventBreak, 5)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.EventBreak, ev.Type)
	require.NotNil(t, ev.EndTime)
	assert.Equal(t, t0.Add(5*time.Minute), *ev.EndTime)

	// the same type again switches the overlay off
	ev, err = svc.ToggleTeamEvent(f.ctx, f.room, 2, model.EventBreak, 5)
	require.NoError(t, err)
	assert.Nil(t, ev)

	// a different type replaces the current one
	_, err = svc.ToggleTeamEvent(f.ctx, f.room, 2, model.EventLunch, 30)
	require.NoError(t, err)
	ev, err = svc.ToggleTeamEvent(f.ctx, f.room, 2, model.EventAnnouncement, 0)
	require.NoError(t, err)
	assert.Equal(t, model.EventAnnouncement, ev.Type)
	assert.Nil(t, ev.EndTime)

	room, err := f.store.GetRoom(f.ctx, f.room)
	require.NoError(t, err)
	assert.Equal(t, model.EventAnnouncement, room.Team(2).CurrentEvent.Type)
	assert.Nil(t, room.Team(1), "other teams are untouched")
}

func TestToggleTeamEvent_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 3)
	svc := NewEventService(f.store, f.clock)

	_, err := svc.ToggleTeamEvent(f.ctx, f.room, 1, "FIRE_DRILL", 0)
	assert.ErrorIs(t, err, ErrInvalidEventType)

	_, err = svc.ToggleTeamEvent(f.ctx, f.room, 4, model.EventBreak, 5)
	assert.ErrorIs(t, err, ErrInvalidTeam)
}

func TestToggleAllTeamsEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 3)
	svc := NewEventService(f.store, f.clock)

	// team 2 already shows a break; the others do not
	_, err := svc.ToggleTeamEvent(f.ctx, f.room, 2, model.EventBreak, 10)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	ev, err := svc.ToggleAllTeamsEvent(f.ctx, f.room, model.EventBreak, 5)
	require.NoError(t, err)
	require.NotNil(t, ev)

	room, err := f.store.GetRoom(f.ctx, f.room)
	require.NoError(t, err)
	want := t0.Add(6 * time.Minute)
	for id := 1; id <= 3; id++ {
		cur := room.Team(id).CurrentEvent
		require.NotNil(t, cur, "team %d", id)
		assert.Equal(t, want, *cur.EndTime, "team %d shares the end time", id)
	}

	// every team shows it now, so the next toggle clears all of them
	ev, err = svc.ToggleAllTeamsEvent(f.ctx, f.room, model.EventBreak, 5)
	require.NoError(t, err)
	assert.Nil(t, ev)

	room, err = f.store.GetRoom(f.ctx, f.room)
	require.NoError(t, err)
	for id := 1; id <= 3; id++ {
		assert.Nil(t, room.Team(id).CurrentEvent, "team %d", id)
	}
}

func TestEndTeamEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	svc := NewEventService(f.store, f.clock)

	t.Run("idle and absent teams are no-ops", func(t *testing.T) {
		assert.NoError(t, svc.EndTeamEvent(f.ctx, f.room, 1))
	})

	t.Run("untimed events need an admin", func(t *testing.T) {
		_, err := svc.ToggleTeamEvent(f.ctx, f.room, 1, model.EventCelebration, 0)
		require.NoError(t, err)
		assert.ErrorIs(t, svc.EndTeamEvent(f.ctx, f.room, 1), ErrEventNotDismissible)
		require.NoError(t, svc.ReleaseTeamEvent(f.ctx, f.room, 1))
	})

	t.Run("timed events cannot be dismissed early", func(t *testing.T) {
		_, err := svc.ToggleTeamEvent(f.ctx, f.room, 1, model.EventLunch, 1)
		require.NoError(t, err)
		assert.ErrorIs(t, svc.EndTeamEvent(f.ctx, f.room, 1), ErrEventNotExpired)

		f.clock.Advance(time.Minute)
		require.NoError(t, svc.EndTeamEvent(f.ctx, f.room, 1))

		st, err := svc.TeamEventState(f.ctx, f.room, 1)
		require.NoError(t, err)
		assert.Equal(t, event.Idle, st.State)
	})
}

func TestReleaseTeamEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	svc := NewEventService(f.store, f.clock)

	require.NoError(t, svc.ReleaseTeamEvent(f.ctx, f.room, 2))

	_, err := svc.ToggleTeamEvent(f.ctx, f.room, 2, model.EventBreak, 15)
	require.NoError(t, err)
	require.NoError(t, svc.ReleaseTeamEvent(f.ctx, f.room, 2))

	st, err := svc.TeamEventState(f.ctx, f.room, 2)
	require.NoError(t, err)
	assert.Equal(t, event.Status{State: event.Idle}, st)
}

// A five-minute room-wide break: every screen counts down together, dismissals
// before the end are refused, and the first dismissal after it clears the
// overlay while repeats from other devices are harmless.
func TestScenario_RoomWideBreak(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	svc := NewEventService(f.store, f.clock)

	_, err := svc.ToggleAllTeamsEvent(f.ctx, f.room, model.EventBreak, 5)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	st, err := svc.TeamEventState(f.ctx, f.room, 1)
	require.NoError(t, err)
	assert.Equal(t, event.ActiveTimed, st.State)
	assert.Equal(t, int64(3*60*1000), st.RemainingMs)
	assert.ErrorIs(t, svc.EndTeamEvent(f.ctx, f.room, 1), ErrEventNotExpired)

	f.clock.Advance(3 * time.Minute)
	st, err = svc.TeamEventState(f.ctx, f.room, 2)
	require.NoError(t, err)
	assert.Equal(t, event.Expired, st.State)
	assert.Zero(t, st.RemainingMs)

	require.NoError(t, svc.EndTeamEvent(f.ctx, f.room, 1))
	require.NoError(t, svc.EndTeamEvent(f.ctx, f.room, 1))
	require.NoError(t, svc.EndTeamEvent(f.ctx, f.room, 2))

	room, err := f.store.GetRoom(f.ctx, f.room)
	require.NoError(t, err)
	assert.Nil(t, room.Team(1).CurrentEvent)
	assert.Nil(t, room.Team(2).CurrentEvent)
}

func TestScenario_BreakRetoggleAfterDismiss(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	svc := NewEventService(f.store, f.clock)

	ev, err := svc.ToggleTeamEvent(f.ctx, f.room, 1, model.EventBreak, 1)
	require.NoError(t, err)
	require.NotNil(t, ev.EndTime)
	assert.Equal(t, t0.Add(60*time.Second), *ev.EndTime)

	f.clock.Advance(61 * time.Second)
	st, err := svc.TeamEventState(f.ctx, f.room, 1)
	require.NoError(t, err)
	assert.Equal(t, event.Expired, st.State)
	require.NoError(t, svc.EndTeamEvent(f.ctx, f.room, 1))

	f.clock.Advance(time.Second)
	ev, err = svc.ToggleTeamEvent(f.ctx, f.room, 1, model.EventBreak, 1)
	require.NoError(t, err)
	require.NotNil(t, ev, "same type after dismissal starts a new break")
	require.NotNil(t, ev.EndTime)
	assert.Equal(t, t0.Add(122*time.Second), *ev.EndTime)

	st, err = svc.TeamEventState(f.ctx, f.room, 1)
	require.NoError(t, err)
	assert.Equal(t, event.ActiveTimed, st.State)
	assert.Equal(t, int64(60*1000), st.RemainingMs)
}
