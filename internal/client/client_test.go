package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"teamquest/internal/app"
	"teamquest/internal/config"
	"teamquest/internal/event"
	"teamquest/internal/model"
	"teamquest/internal/repository"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	url   string
	clock *clockwork.FakeClock
	repo  *repository.MemoryRoomRepo
}

func newServer(t *testing.T) *server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := clockwork.NewFakeClockAt(watchStart)
	repo := repository.NewMemoryRoomRepo()
	a := app.New(ctx, &config.Config{
		AdminUsername: "admin",
		AdminPassword: "pw",
		JWTSecret:     "client-secret",
		AI:            &config.AIConfig{TimeoutMS: 1000, RatePerMinute: 60, Burst: 5},
	}, app.Deps{RoomRepo: repo, Clock: clock})
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.Router)
	t.Cleanup(srv.Close)
	return &server{url: srv.URL, clock: clock, repo: repo}
}

func adminClient(t *testing.T, s *server) *Client {
	t.Helper()
	c := New(s.url, "")
	_, err := c.Login(context.Background(), "admin", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, c.Token())
	return c
}

func TestClient_AdminFlow(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	_, err := New(s.url, "").Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	admin := adminClient(t, s)
	room, err := admin.CreateRoom(ctx, CreateRoomRequest{GroupName: "Ward 3", TotalTeams: 2, MembersPerTeam: 4})
	require.NoError(t, err)

	require.NoError(t, admin.RenameGroup(ctx, room.ID, "Ward 4"))
	require.NoError(t, admin.StartMission(ctx, room.ID, 45))

	rooms, err := admin.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Ward 4", rooms[0].GroupName)
	assert.True(t, rooms[0].MissionStarted)

	team, err := admin.SetRoundInstruction(ctx, room.ID, 2, 4, "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", team.RoundInstructions[4])

	require.NoError(t, admin.ResetRoom(ctx, room.ID))
	got, err := admin.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Teams)

	require.NoError(t, admin.DeleteRoom(ctx, room.ID))
	_, err = admin.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, admin.Logout(ctx))
}

func TestClient_LearnerFlow(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	admin := adminClient(t, s)

	room, err := admin.CreateRoom(ctx, CreateRoomRequest{GroupName: "Ward 3", TotalTeams: 2, MembersPerTeam: 4})
	require.NoError(t, err)

	// an unjoined team is left alone
	team, err := admin.UpdateRound(ctx, room.ID, 1, 3)
	require.NoError(t, err)
	assert.Nil(t, team)

	learner := New(s.url, "")
	joined, err := learner.JoinTeam(ctx, room.ID, 1, JoinRequest{Members: []model.Member{{Role: model.RoleLeader, Name: "Ada"}}})
	require.NoError(t, err)
	assert.Equal(t, joined.Token, learner.Token())

	_, err = New(s.url, "").JoinTeam(ctx, room.ID, 1, JoinRequest{Members: []model.Member{{Role: model.RoleLeader, Name: "Eve"}}})
	assert.ErrorIs(t, err, ErrConflict)

	team, err = learner.UpdateRound(ctx, room.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, team.CurrentRound)

	_, err = learner.RecordHelp(ctx, room.ID, 1, 1)
	require.NoError(t, err)
	_, err = learner.RecordRoundTime(ctx, room.ID, 1, 1, 95)
	require.NoError(t, err)
	_, err = learner.AddBonusTime(ctx, room.ID, 1, 20)
	require.NoError(t, err)

	team, err = learner.RecordMiniGame(ctx, room.ID, 1, model.MiniGameCPR, model.MiniGameOutcome{Completed: true, Score: 88})
	require.NoError(t, err)
	assert.Equal(t, 88, team.MiniGameScores["cpr"])

	team, err = learner.RecordMiniGame(ctx, room.ID, 1, model.MiniGameCPR, model.MiniGameOutcome{Completed: false})
	require.NoError(t, err)
	assert.Nil(t, team)

	team, err = learner.MarkMissionClear(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.True(t, team.IsCompleted())
	assert.Equal(t, 1, team.HelpCount)
	assert.Equal(t, 95, team.RoundTimes[1])
	assert.Equal(t, 20, team.TotalBonusTime)

	board, err := learner.Leaderboard(ctx, room.ID, model.MiniGameCPR, 5)
	require.NoError(t, err)
	assert.Empty(t, board, "no leaderboard without redis")

	_, err = learner.UpdateRound(ctx, room.ID, 2, 5)
	assert.True(t, IsStatus(err, http.StatusForbidden))

	_, err = learner.CreateRoom(ctx, CreateRoomRequest{TotalTeams: 1, MembersPerTeam: 2})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_Events(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	admin := adminClient(t, s)

	room, err := admin.CreateRoom(ctx, CreateRoomRequest{TotalTeams: 2, MembersPerTeam: 4})
	require.NoError(t, err)
	learner := New(s.url, "")
	_, err = learner.JoinTeam(ctx, room.ID, 2, JoinRequest{Members: []model.Member{{Role: model.RoleLeader, Name: "Ada"}}})
	require.NoError(t, err)

	ev, err := admin.ToggleAllTeamsEvent(ctx, room.ID, model.EventLunch, 30)
	require.NoError(t, err)
	require.NotNil(t, ev.EndTime)

	err = learner.DismissEvent(ctx, room.ID, 2)
	assert.ErrorIs(t, err, ErrConflict)

	s.clock.Advance(30 * time.Minute)
	st, err := learner.EventStatus(ctx, room.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, event.Expired, st.State)
	require.NoError(t, learner.DismissEvent(ctx, room.ID, 2))

	ev, err = admin.ToggleTeamEvent(ctx, room.ID, 1, model.EventBirthday, 0)
	require.NoError(t, err)
	assert.Nil(t, ev.EndTime)
	ev, err = admin.ToggleTeamEvent(ctx, room.ID, 1, model.EventBirthday, 0)
	require.NoError(t, err)
	assert.Nil(t, ev)

	_, err = admin.ToggleTeamEvent(ctx, room.ID, 1, model.EventBreak, 5)
	require.NoError(t, err)
	require.NoError(t, admin.ReleaseEvent(ctx, room.ID, 1))
	st, err = admin.EventStatus(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, event.Idle, st.State)
}

func TestClient_Judge(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	admin := adminClient(t, s)

	room, err := admin.CreateRoom(ctx, CreateRoomRequest{TotalTeams: 1, MembersPerTeam: 2})
	require.NoError(t, err)

	plant, err := admin.VerifyPlant(ctx, room.ID, 1, model.PlantCheckRequest{ImageData: "aGk="})
	require.NoError(t, err)
	assert.True(t, plant.Pass)

	fb, err := admin.ValidateReport(ctx, room.ID, 1, model.ReportCheckRequest{Kind: "report", Fields: map[string]string{"summary": ""}})
	assert.ErrorIs(t, err, ErrRejected)
	assert.False(t, fb.Pass)
	assert.NotEmpty(t, fb.Feedback)

	img, err := admin.GenerateInfographic(ctx, room.ID, 1, model.InfographicRequest{Prompt: "our day"})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.False(t, img.Success)
}

func TestFeed_AdminAndRoom(t *testing.T) {
	s := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	admin := adminClient(t, s)

	feed, err := DialRooms(ctx, s.url, admin.Token())
	require.NoError(t, err)
	defer feed.Close()

	initial, err := feed.Next(ctx)
	require.NoError(t, err)
	assert.Empty(t, initial)

	room, err := admin.CreateRoom(ctx, CreateRoomRequest{GroupName: "Ward 3", TotalTeams: 2, MembersPerTeam: 4})
	require.NoError(t, err)

	rooms := nextMatching(t, ctx, feed, func(rooms map[string]*model.Room) bool {
		_, ok := rooms[room.ID]
		return ok
	})
	assert.NotNil(t, rooms[room.ID].Teams)

	learner := New(s.url, "")
	_, err = learner.JoinTeam(ctx, room.ID, 1, JoinRequest{Members: []model.Member{{Role: model.RoleLeader, Name: "Ada"}}})
	require.NoError(t, err)

	roomFeed, err := DialRoom(ctx, s.url, room.ID, learner.Token())
	require.NoError(t, err)
	require.NoError(t, roomFeed.SendActivity())

	views := make(chan View, 32)
	syncer := NewSyncer(func(v View) { views <- v })
	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx, roomFeed) }()

	v := waitView(t, views, func(v View) bool { return v.Selected != nil })
	assert.Equal(t, room.ID, v.SelectedID)
	require.NotNil(t, v.Selected.Team(1))
	assert.Equal(t, "Ada", v.Selected.Team(1).LeaderName())

	_, err = learner.UpdateRound(ctx, room.ID, 1, 4)
	require.NoError(t, err)
	waitView(t, views, func(v View) bool { return v.Selected.Team(1).CurrentRound == 4 })

	require.NoError(t, roomFeed.Close())
	require.Error(t, <-done)
	assert.True(t, syncer.View().Stale)
	assert.Equal(t, 4, syncer.View().Selected.Team(1).CurrentRound, "last snapshot kept")

	_, err = DialRoom(ctx, s.url, "other-room", learner.Token())
	assert.True(t, IsStatus(err, http.StatusForbidden))
}

// nextMatching reads snapshots until one satisfies ok
func nextMatching(t *testing.T, ctx context.Context, feed Feed, ok func(map[string]*model.Room) bool) map[string]*model.Room {
	t.Helper()
	for {
		rooms, err := feed.Next(ctx)
		require.NoError(t, err)
		if ok(rooms) {
			return rooms
		}
	}
}

func waitView(t *testing.T, views <-chan View, ok func(View) bool) View {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case v := <-views:
			if ok(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for view")
			return View{}
		}
	}
}
