package service

import (
	"context"
	"teamquest/internal/cache"
	"teamquest/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func leaderJoin(name string) JoinRequest {
	return JoinRequest{Members: []model.Member{{Role: model.RoleLeader, Name: name}}}
}

func TestJoinTeam_FirstJoinClaimsTeam(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 4)
	svc := NewTeamService(f.store, f.clock)

	team, err := svc.JoinTeam(f.ctx, f.room, 2, JoinRequest{
		Members: []model.Member{
			{Role: model.RoleLeader, Name: "Ada"},
			{Role: model.RoleRecorder, Name: "Kim"},
		},
		RoundInstructions: map[int]string{3: "find the exit", 42: "ignored"},
	})
	require.NoError(t, err)
	assert.True(t, team.IsJoined)
	assert.Equal(t, "Ada", team.LeaderName())
	assert.Equal(t, model.FirstRound, team.CurrentRound)
	assert.Equal(t, map[int]string{3: "find the exit"}, team.RoundInstructions)

	room, err := f.store.GetRoom(f.ctx, f.room)
	require.NoError(t, err)
	assert.True(t, room.Team(2).IsJoined)
}

func TestJoinTeam_DifferentLeaderIsRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 4)
	svc := NewTeamService(f.store, f.clock)

	_, err := svc.JoinTeam(f.ctx, f.room, 1, leaderJoin("Ada"))
	require.NoError(t, err)
	_, err = svc.UpdateTeamRound(f.ctx, f.room, 1, 3)
	require.NoError(t, err)

	before, _ := f.store.GetRoom(f.ctx, f.room)

	_, err = svc.JoinTeam(f.ctx, f.room, 1, leaderJoin("Mallory"))
	assert.ErrorIs(t, err, ErrIdentityConflict)

	after, _ := f.store.GetRoom(f.ctx, f.room)
	assert.Equal(t, before, after, "rejected join must not write")
}

func TestJoinTeam_SameLeaderReconnectsKeepingProgress(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 4)
	svc := NewTeamService(f.store, f.clock)

	_, err := svc.JoinTeam(f.ctx, f.room, 1, JoinRequest{
		Members:           []model.Member{{Role: model.RoleLeader, Name: "Ada"}},
		RoundInstructions: map[int]string{2: "original"},
	})
	require.NoError(t, err)
	_, err = svc.UpdateTeamRound(f.ctx, f.room, 1, 6)
	require.NoError(t, err)
	_, err = svc.RecordHelp(f.ctx, f.room, 1, 4)
	require.NoError(t, err)

	team, err := svc.JoinTeam(f.ctx, f.room, 1, JoinRequest{
		Members:           []model.Member{{Role: model.RoleLeader, Name: "Ada"}, {Role: model.RoleNavigator, Name: "Lin"}},
		RoundInstructions: map[int]string{2: "replacement", 5: "new"},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, team.CurrentRound)
	assert.Equal(t, 1, team.HelpCount)
	assert.Equal(t, "original", team.RoundInstructions[2])
	assert.Equal(t, "new", team.RoundInstructions[5])
	assert.Equal(t, "Lin", team.Members[1].Name)
}

func TestJoinTeam_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	svc := NewTeamService(f.store, f.clock)

	_, err := svc.JoinTeam(f.ctx, f.room, 1, JoinRequest{})
	assert.ErrorIs(t, err, ErrLeaderRequired)

	_, err = svc.JoinTeam(f.ctx, f.room, 3, leaderJoin("Ada"))
	assert.ErrorIs(t, err, ErrInvalidTeam)

	_, err = svc.JoinTeam(f.ctx, "nope", 1, leaderJoin("Ada"))
	assert.Error(t, err)
}

func TestUpdateTeamRound_Clamps(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	svc := NewTeamService(f.store, f.clock)
	_, err := svc.JoinTeam(f.ctx, f.room, 1, leaderJoin("Ada"))
	require.NoError(t, err)

	for in, want := range map[int]int{0: 1, -7: 1, 4: 4, 10: 10, 11: 10, 500: 10} {
		team, err := svc.UpdateTeamRound(f.ctx, f.room, 1, in)
		require.NoError(t, err)
		assert.Equal(t, want, team.CurrentRound, "round %d", in)
	}
}

func TestUpdateTeamRound_AbsentTeamIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 3)
	svc := NewTeamService(f.store, f.clock)

	team, err := svc.UpdateTeamRound(f.ctx, f.room, 2, 5)
	require.NoError(t, err)
	assert.Nil(t, team)

	room, _ := f.store.GetRoom(f.ctx, f.room)
	assert.Nil(t, room.Team(2))
}

func TestSetRoundInstruction_CreatesTeamLazily(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 3)
	svc := NewTeamService(f.store, f.clock)

	team, err := svc.SetRoundInstruction(f.ctx, f.room, 3, 7, "look under the desk")
	require.NoError(t, err)
	assert.False(t, team.IsJoined)
	assert.Equal(t, "look under the desk", team.RoundInstructions[7])
	assert.Equal(t, model.DefaultMembers(), team.Members)

	team, err = svc.SetRoundInstruction(f.ctx, f.room, 3, 7, "")
	require.NoError(t, err)
	assert.NotContains(t, team.RoundInstructions, 7)

	_, err = svc.SetRoundInstruction(f.ctx, f.room, 3, 11, "x")
	assert.ErrorIs(t, err, ErrInvalidRound)
}

func TestProgressRecorders(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	svc := NewTeamService(f.store, f.clock)
	_, err := svc.JoinTeam(f.ctx, f.room, 1, leaderJoin("Ada"))
	require.NoError(t, err)

	team, err := svc.RecordHelp(f.ctx, f.room, 1, 2)
	require.NoError(t, err)
	require.Len(t, team.HelpUsages, 1)
	assert.Equal(t, model.HelpUsage{Round: 2, UsedAt: t0}, team.HelpUsages[0])

	team, err = svc.RecordRoundTime(f.ctx, f.room, 1, 2, 185)
	require.NoError(t, err)
	assert.Equal(t, 185, team.RoundTimes[2])

	_, err = svc.RecordRoundTime(f.ctx, f.room, 1, 2, -1)
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = svc.AddBonusTime(f.ctx, f.room, 1, 30)
	require.NoError(t, err)
	team, err = svc.AddBonusTime(f.ctx, f.room, 1, 15)
	require.NoError(t, err)
	assert.Equal(t, 45, team.TotalBonusTime)

	_, err = svc.AddBonusTime(f.ctx, f.room, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestMarkMissionClear_SetOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	svc := NewTeamService(f.store, f.clock)
	_, err := svc.JoinTeam(f.ctx, f.room, 1, leaderJoin("Ada"))
	require.NoError(t, err)

	team, err := svc.MarkMissionClear(f.ctx, f.room, 1)
	require.NoError(t, err)
	require.NotNil(t, team.MissionClearTime)
	assert.Equal(t, t0, *team.MissionClearTime)
	assert.True(t, team.IsCompleted())

	f.clock.Advance(10 * time.Minute)
	team, err = svc.MarkMissionClear(f.ctx, f.room, 1)
	require.NoError(t, err)
	assert.Equal(t, t0, *team.MissionClearTime)
}

type mockLeaderboard struct {
	mock.Mock
}

func (m *mockLeaderboard) UpdateBest(ctx context.Context, roomID, game string, teamID, score int) error {
	return m.Called(roomID, game, teamID, score).Error(0)
}

func (m *mockLeaderboard) GetTop(ctx context.Context, roomID, game string, limit int) ([]cache.LeaderboardEntry, error) {
	args := m.Called(roomID, game, limit)
	return args.Get(0).([]cache.LeaderboardEntry), args.Error(1)
}

func (m *mockLeaderboard) Clear(ctx context.Context, roomID string, games ...string) error {
	return m.Called(roomID, games).Error(0)
}

func TestRecordMiniGame(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	lb := &mockLeaderboard{}
	svc := NewTeamService(f.store, f.clock)
	svc.SetLeaderboard(lb)
	_, err := svc.JoinTeam(f.ctx, f.room, 1, leaderJoin("Ada"))
	require.NoError(t, err)

	lb.On("UpdateBest", f.room, "cpr", 1, 80).Return(nil).Once()
	lb.On("UpdateBest", f.room, "cpr", 1, 60).Return(nil).Once()

	team, err := svc.RecordMiniGame(f.ctx, f.room, 1, model.MiniGameCPR, model.MiniGameOutcome{Completed: true, Score: 80})
	require.NoError(t, err)
	assert.Equal(t, 80, team.MiniGameScores["cpr"])

	team, err = svc.RecordMiniGame(f.ctx, f.room, 1, model.MiniGameCPR, model.MiniGameOutcome{Completed: true, Score: 60})
	require.NoError(t, err)
	assert.Equal(t, 80, team.MiniGameScores["cpr"], "best score is kept")

	team, err = svc.RecordMiniGame(f.ctx, f.room, 1, model.MiniGameRelay, model.MiniGameOutcome{Completed: false, Score: 999})
	require.NoError(t, err)
	assert.Nil(t, team, "cancelled outcome changes nothing")

	_, err = svc.RecordMiniGame(f.ctx, f.room, 1, "darts", model.MiniGameOutcome{Completed: true})
	assert.ErrorIs(t, err, ErrInvalidMiniGame)

	lb.AssertExpectations(t)
}

// A learner on round 5 opens the app on a second device: the same leader
// re-joins, sees round 5, and round updates from either device land.
func TestScenario_ReconnectOnSecondDevice(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 3)
	svc := NewTeamService(f.store, f.clock)

	_, err := svc.JoinTeam(f.ctx, f.room, 2, leaderJoin("Ada"))
	require.NoError(t, err)
	_, err = svc.UpdateTeamRound(f.ctx, f.room, 2, 5)
	require.NoError(t, err)

	team, err := svc.JoinTeam(f.ctx, f.room, 2, leaderJoin("Ada"))
	require.NoError(t, err)
	assert.Equal(t, 5, team.CurrentRound)

	_, err = svc.JoinTeam(f.ctx, f.room, 2, leaderJoin("Eve"))
	assert.ErrorIs(t, err, ErrIdentityConflict)

	team, err = svc.UpdateTeamRound(f.ctx, f.room, 2, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, team.CurrentRound)
}

func TestScenario_InstructionSurvivesRoundAdvance(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 3)
	svc := NewTeamService(f.store, f.clock)

	_, err := svc.JoinTeam(f.ctx, f.room, 2, leaderJoin("Kim"))
	require.NoError(t, err)
	_, err = svc.SetRoundInstruction(f.ctx, f.room, 2, 3, "Do X")
	require.NoError(t, err)

	for round := 2; round <= 4; round++ {
		_, err := svc.UpdateTeamRound(f.ctx, f.room, 2, round)
		require.NoError(t, err)
	}

	room, err := f.store.GetRoom(f.ctx, f.room)
	require.NoError(t, err)
	team := room.Team(2)
	require.NotNil(t, team)
	assert.Equal(t, 4, team.CurrentRound)
	assert.True(t, team.IsJoined)
	assert.Equal(t, "Kim", team.LeaderName())
	assert.Equal(t, "Do X", team.RoundInstructions[3])
}
