package client

import (
	"context"
	"errors"
	"sync"
	"teamquest/internal/event"
	"teamquest/internal/model"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var watchStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type dismissCounter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (d *dismissCounter) dismiss(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.err
}

func (d *dismissCounter) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func TestEventWatcher_DismissesOncePerEvent(t *testing.T) {
	d := &dismissCounter{err: errors.New("already dismissed")}
	var last event.Status
	w := NewEventWatcher(clockwork.NewFakeClockAt(watchStart), d.dismiss, func(st event.Status) { last = st })

	brk := event.Start(model.EventBreak, 5, watchStart)
	w.Update(brk)

	w.Check(watchStart.Add(time.Minute))
	assert.Equal(t, event.ActiveTimed, last.State)
	assert.Equal(t, 4*time.Minute, last.Remaining)
	assert.Zero(t, d.count())

	w.Check(watchStart.Add(5 * time.Minute))
	w.Check(watchStart.Add(6 * time.Minute))
	assert.Equal(t, event.Expired, last.State)
	assert.Equal(t, 1, d.count(), "a failed dismiss is not retried")

	// the same event arriving in a later snapshot keeps the shot spent
	w.Update(brk.Clone())
	w.Check(watchStart.Add(7 * time.Minute))
	assert.Equal(t, 1, d.count())

	// a replacement event re-arms
	w.Update(event.Start(model.EventLunch, 1, watchStart.Add(7*time.Minute)))
	w.Check(watchStart.Add(8 * time.Minute))
	assert.Equal(t, 2, d.count())

	w.Update(nil)
	w.Check(watchStart.Add(9 * time.Minute))
	assert.Equal(t, event.Idle, last.State)
	assert.Equal(t, 2, d.count())
}

func TestEventWatcher_UntimedNeverDismisses(t *testing.T) {
	d := &dismissCounter{}
	w := NewEventWatcher(clockwork.NewFakeClockAt(watchStart), d.dismiss, nil)

	w.Update(event.Start(model.EventAnnouncement, 0, watchStart))
	w.Check(watchStart.Add(24 * time.Hour))
	assert.Zero(t, d.count())
}

func TestEventWatcher_Ticks(t *testing.T) {
	clock := clockwork.NewFakeClockAt(watchStart)
	d := &dismissCounter{}
	w := NewEventWatcher(clock, d.dismiss, nil)
	w.Update(event.Start(model.EventBreak, 1, watchStart))

	w.Start(time.Second)
	defer w.Stop()

	clock.Advance(30 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, d.count())

	clock.Advance(45 * time.Second)
	require.Eventually(t, func() bool {
		clock.Advance(time.Second)
		return d.count() == 1
	}, time.Second, 5*time.Millisecond)

	w.Stop()
	w.Stop()
}
