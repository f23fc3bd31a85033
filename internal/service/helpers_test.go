package service

import (
	"context"
	"teamquest/internal/repository"
	"teamquest/internal/store"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx   context.Context
	clock *clockwork.FakeClock
	repo  *repository.MemoryRoomRepo
	store *store.RoomStore
	room  string
}

// newFixture creates a store holding one room with the given number of teams
func newFixture(t *testing.T, teams int) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := clockwork.NewFakeClockAt(t0)
	repo := repository.NewMemoryRoomRepo()
	s := store.New(ctx, repo, store.WithClock(clock))

	id, err := s.CreateRoom(ctx, "Ward 3", teams, 6, "healthcare")
	require.NoError(t, err)

	return &fixture{ctx: ctx, clock: clock, repo: repo, store: s, room: id}
}
