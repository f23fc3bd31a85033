package client

import (
	"context"
	"errors"
	"sort"
	"sync"
	"teamquest/internal/model"

	"github.com/rs/zerolog/log"
)

// SelectRoom picks the room a view should show: current if it still exists,
// otherwise the first id in sorted order, otherwise "".
func SelectRoom(rooms map[string]*model.Room, current string) string {
	if current != "" {
		if _, ok := rooms[current]; ok {
			return current
		}
	}
	if len(rooms) == 0 {
		return ""
	}
	ids := make([]string, 0, len(rooms))
	for id := range rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[0]
}

// View is a read-only picture of the latest broadcast.
type View struct {
	Rooms      map[string]*model.Room
	SelectedID string
	Selected   *model.Room
	// Stale is set once the feed fails; Rooms is then the last good snapshot.
	Stale bool
}

// Syncer keeps the latest broadcast snapshot and the selected room. Views are
// always rebuilt from a snapshot, never patched locally.
type Syncer struct {
	mu       sync.RWMutex
	rooms    map[string]*model.Room
	selected string
	stale    bool

	onChange func(View)
}

// NewSyncer creates a syncer. onChange, if set, is called after each snapshot.
func NewSyncer(onChange func(View)) *Syncer {
	return &Syncer{
		rooms:    make(map[string]*model.Room),
		onChange: onChange,
	}
}

// Apply replaces the snapshot and re-resolves the selection.
func (s *Syncer) Apply(rooms map[string]*model.Room) {
	if rooms == nil {
		rooms = make(map[string]*model.Room)
	}
	s.mu.Lock()
	s.rooms = rooms
	s.selected = SelectRoom(rooms, s.selected)
	s.stale = false
	v := s.viewLocked()
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(v)
	}
}

// Select changes the selected room. Unknown ids fall back the same way a
// vanished room does.
func (s *Syncer) Select(id string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = SelectRoom(s.rooms, id)
	return s.viewLocked()
}

// View returns the current view.
func (s *Syncer) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

// Run applies snapshots from feed until it fails or ctx is done. On a feed
// error the last snapshot is kept, the view is marked stale and the error is
// returned so the caller can reconnect.
func (s *Syncer) Run(ctx context.Context, feed Feed) error {
	for {
		rooms, err := feed.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.markStale()
			if !errors.Is(err, ErrSessionExpired) {
				log.Warn().Err(err).Msg("room feed failed, keeping last snapshot")
			}
			return err
		}
		s.Apply(rooms)
	}
}

func (s *Syncer) markStale() {
	s.mu.Lock()
	s.stale = true
	v := s.viewLocked()
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(v)
	}
}

func (s *Syncer) viewLocked() View {
	rooms := model.CloneRooms(s.rooms)
	return View{
		Rooms:      rooms,
		SelectedID: s.selected,
		Selected:   rooms[s.selected],
		Stale:      s.stale,
	}
}
