package event

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is how often countdowns are recomputed
const DefaultInterval = 500 * time.Millisecond

// Ticker calls fn at a fixed interval until stopped. It carries no state of
// its own; fn decides what the tick means.
type Ticker struct {
	ticker clockwork.Ticker
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewTicker starts calling fn every interval using clock
func NewTicker(clock clockwork.Clock, interval time.Duration, fn func(now time.Time)) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := &Ticker{
		ticker: clock.NewTicker(interval),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		for {
			select {
			case <-t.stop:
				return
			case now := <-t.ticker.Chan():
				fn(now)
			}
		}
	}()
	return t
}

// Stop halts the ticker and waits for an in-flight callback to return. Safe to
// call twice, but not from inside fn.
func (t *Ticker) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.stop)
	})
	<-t.done
}
