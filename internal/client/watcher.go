package client

import (
	"context"
	"sync"
	"teamquest/internal/event"
	"teamquest/internal/model"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const dismissTimeout = 10 * time.Second

// EventWatcher follows one team's current event. It recomputes the countdown
// on every tick and asks the server to dismiss an expired event exactly once
// per event identity.
type EventWatcher struct {
	clock   clockwork.Clock
	dismiss func(ctx context.Context) error
	onTick  func(event.Status)

	mu       sync.Mutex
	current  *model.TeamEvent
	identity string
	fired    bool
	ticker   *event.Ticker
}

// NewEventWatcher creates a watcher. dismiss is called when an event expires;
// onTick, if set, receives the derived status on every tick.
func NewEventWatcher(clock clockwork.Clock, dismiss func(ctx context.Context) error, onTick func(event.Status)) *EventWatcher {
	return &EventWatcher{
		clock:   clock,
		dismiss: dismiss,
		onTick:  onTick,
	}
}

// Update feeds the team's event from the latest snapshot. A new identity
// re-arms the one-shot dismissal; the same identity keeps it spent.
func (w *EventWatcher) Update(ev *model.TeamEvent) {
	id := event.Identity(ev)

	w.mu.Lock()
	defer w.mu.Unlock()
	if id == w.identity {
		return
	}
	w.current = ev.Clone()
	w.identity = id
	w.fired = false
}

// Start begins ticking at interval. Calling Start twice replaces the ticker.
func (w *EventWatcher) Start(interval time.Duration) {
	t := event.NewTicker(w.clock, interval, w.Check)

	w.mu.Lock()
	old := w.ticker
	w.ticker = t
	w.mu.Unlock()

	if old != nil {
		old.Stop()
	}
}

// Stop clears the ticker. The watcher can be started again.
func (w *EventWatcher) Stop() {
	w.mu.Lock()
	t := w.ticker
	w.ticker = nil
	w.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}

// Check evaluates the event at now. It is what each tick runs.
func (w *EventWatcher) Check(now time.Time) {
	w.mu.Lock()
	status := event.Describe(w.current, now)
	fire := status.State == event.Expired && !w.fired
	if fire {
		w.fired = true
	}
	identity := w.identity
	w.mu.Unlock()

	if w.onTick != nil {
		w.onTick(status)
	}
	if !fire || w.dismiss == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dismissTimeout)
	defer cancel()
	if err := w.dismiss(ctx); err != nil {
		// Another screen of the same team may already have dismissed it
		log.Warn().Err(err).Str("event", identity).Msg("event dismiss failed")
	}
}
