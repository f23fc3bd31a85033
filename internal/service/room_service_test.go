package service

import (
	"sync"
	"teamquest/internal/config"
	"teamquest/internal/store"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeBroadcaster struct {
	mu           sync.Mutex
	messages     []string
	disconnected []string
}

func (b *fakeBroadcaster) BroadcastToRoom(roomID string, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, roomID+":"+msgType)
}

func (b *fakeBroadcaster) DisconnectRoom(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, roomID)
}

func TestCreateRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1)
	svc := NewRoomService(f.store, f.clock)

	room, err := svc.CreateRoom(f.ctx, CreateRoomRequest{GroupName: "Night shift", TotalTeams: 5, MembersPerTeam: 4})
	require.NoError(t, err)
	assert.Equal(t, "Night shift", room.GroupName)
	assert.Equal(t, 5, room.TotalTeams)
	assert.Empty(t, room.Teams)
	assert.Equal(t, t0, room.CreatedAt)

	_, err = svc.CreateRoom(f.ctx, CreateRoomRequest{TotalTeams: 0, MembersPerTeam: 4})
	assert.ErrorIs(t, err, store.ErrInvalidRoomConfig)
}

func TestListRooms_OrderedByCreation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1)
	svc := NewRoomService(f.store, f.clock)

	f.clock.Advance(time.Minute)
	second, err := svc.CreateRoom(f.ctx, CreateRoomRequest{GroupName: "b", TotalTeams: 2, MembersPerTeam: 2})
	require.NoError(t, err)

	rooms, err := svc.ListRooms(f.ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, f.room, rooms[0].ID)
	assert.Equal(t, second.ID, rooms[1].ID)
}

func TestListRooms_StaleOnStoreFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1)
	svc := NewRoomService(f.store, f.clock)

	_, err := svc.ListRooms(f.ctx)
	require.NoError(t, err)

	f.repo.SetErr(assert.AnError)
	rooms, err := svc.ListRooms(f.ctx)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	require.Len(t, rooms, 1)
	assert.Equal(t, f.room, rooms[0].ID)
}

func TestStartMission_Once(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	svc := NewRoomService(f.store, f.clock)

	room, err := svc.StartMission(f.ctx, f.room, 90)
	require.NoError(t, err)
	assert.True(t, room.MissionStarted)
	assert.Equal(t, t0, *room.MissionStartTime)
	assert.Equal(t, 90, room.MissionTimerMinutes)

	f.clock.Advance(time.Hour)
	room, err = svc.StartMission(f.ctx, f.room, 30)
	require.NoError(t, err)
	assert.Equal(t, t0, *room.MissionStartTime)
	assert.Equal(t, 90, room.MissionTimerMinutes)

	_, err = svc.StartMission(f.ctx, f.room, -1)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestRenameGroup(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	svc := NewRoomService(f.store, f.clock)

	room, err := svc.RenameGroup(f.ctx, f.room, "ICU cohort")
	require.NoError(t, err)
	assert.Equal(t, "ICU cohort", room.GroupName)

	_, err = svc.RenameGroup(f.ctx, "missing", "x")
	assert.ErrorIs(t, err, store.ErrRoomNotFound)
}

func TestResetRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	b := &fakeBroadcaster{}
	lb := &mockLeaderboard{}
	svc := NewRoomService(f.store, f.clock)
	svc.SetBroadcaster(b)
	svc.SetLeaderboard(lb)

	teams := NewTeamService(f.store, f.clock)
	_, err := teams.JoinTeam(f.ctx, f.room, 1, leaderJoin("Ada"))
	require.NoError(t, err)
	_, err = svc.StartMission(f.ctx, f.room, 60)
	require.NoError(t, err)

	judge := NewJudgeService(&config.AIConfig{RatePerMinute: 1, Burst: 1})
	svc.SetJudge(judge)
	require.NoError(t, judge.Allow(f.room, 1))
	require.ErrorIs(t, judge.Allow(f.room, 1), ErrRateLimited)

	lb.On("Clear", f.room, mock.Anything).Return(nil).Once()
	require.NoError(t, svc.ResetRoom(f.ctx, f.room))
	assert.NoError(t, judge.Allow(f.room, 1))

	room, err := svc.GetRoom(f.ctx, f.room)
	require.NoError(t, err)
	assert.Empty(t, room.Teams)
	assert.False(t, room.MissionStarted)
	assert.Nil(t, room.MissionStartTime)
	assert.Equal(t, "Ward 3", room.GroupName)
	assert.Equal(t, 2, room.TotalTeams)
	assert.Equal(t, []string{f.room + ":room_reset"}, b.messages)
	lb.AssertExpectations(t)
}

func TestDeleteRoom(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	b := &fakeBroadcaster{}
	lb := &mockLeaderboard{}
	judge := NewJudgeService(&config.AIConfig{RatePerMinute: 1, Burst: 1})
	svc := NewRoomService(f.store, f.clock)
	svc.SetBroadcaster(b)
	svc.SetLeaderboard(lb)
	svc.SetJudge(judge)

	require.NoError(t, judge.Allow(f.room, 1))
	require.ErrorIs(t, judge.Allow(f.room, 1), ErrRateLimited)

	lb.On("Clear", f.room, []string{"cpr", "relay"}).Return(nil).Once()
	require.NoError(t, svc.DeleteRoom(f.ctx, f.room))
	assert.Equal(t, []string{f.room}, b.disconnected)
	lb.AssertExpectations(t)
	assert.NoError(t, judge.Allow(f.room, 1), "budgets go with the room")

	_, err := svc.GetRoom(f.ctx, f.room)
	assert.ErrorIs(t, err, store.ErrRoomNotFound)

	assert.ErrorIs(t, svc.DeleteRoom(f.ctx, f.room), store.ErrRoomNotFound)
	assert.Len(t, b.disconnected, 1)
}
