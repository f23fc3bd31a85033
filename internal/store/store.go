// Package store is the single source of truth for room documents. Every write
// replaces the whole document and is pushed to all subscribers.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"teamquest/internal/cache"
	"teamquest/internal/model"
	"teamquest/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	ErrStoreUnavailable  = errors.New("room store unavailable")
	ErrRoomNotFound      = errors.New("room not found")
	ErrInvalidRoomConfig = errors.New("invalid room configuration")
)

const loadTimeout = 5 * time.Second

// Listener receives the full room set, keyed by room id. Listeners must not
// write to the store synchronously.
type Listener func(rooms map[string]*model.Room)

// RoomStore owns the room documents, their subscriber set and the shared
// change-notification connection.
type RoomStore struct {
	repo     repository.RoomRepo
	cache    cache.RoomCache
	notifier cache.RoomNotifier
	clock    clockwork.Clock
	origin   string
	baseCtx  context.Context

	mu          sync.Mutex
	subscribers map[uint64]Listener
	nextSubID   uint64
	lastGood    map[string]*model.Room

	// serializes deliveries so listeners observe snapshots in write order
	fanoutMu   sync.Mutex
	listenOnce sync.Once
}

// Option configures a RoomStore
type Option func(*RoomStore)

// WithCache reads rooms through a Redis snapshot cache
func WithCache(c cache.RoomCache) Option {
	return func(s *RoomStore) { s.cache = c }
}

// WithNotifier shares changes with other processes
func WithNotifier(n cache.RoomNotifier) Option {
	return func(s *RoomStore) { s.notifier = n }
}

// WithClock overrides the wall clock
func WithClock(c clockwork.Clock) Option {
	return func(s *RoomStore) { s.clock = c }
}

// New creates a room store. ctx bounds the lifetime of the shared listener.
func New(ctx context.Context, repo repository.RoomRepo, opts ...Option) *RoomStore {
	s := &RoomStore{
		repo:        repo,
		clock:       clockwork.NewRealClock(),
		origin:      uuid.New().String(),
		baseCtx:     ctx,
		subscribers: make(map[uint64]Listener),
		lastGood:    make(map[string]*model.Room),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoom allocates a fresh id and writes a room with no teams
func (s *RoomStore) CreateRoom(ctx context.Context, groupName string, totalTeams, membersPerTeam int, industryType string) (string, error) {
	if totalTeams < model.MinTeams || totalTeams > model.MaxTeams {
		return "", fmt.Errorf("%w: totalTeams must be %d-%d", ErrInvalidRoomConfig, model.MinTeams, model.MaxTeams)
	}
	if membersPerTeam < model.MinMembersPerTeam || membersPerTeam > model.MaxMembersPerTeam {
		return "", fmt.Errorf("%w: membersPerTeam must be %d-%d", ErrInvalidRoomConfig, model.MinMembersPerTeam, model.MaxMembersPerTeam)
	}

	room := &model.Room{
		ID:             uuid.New().String(),
		GroupName:      groupName,
		IndustryType:   industryType,
		TotalTeams:     totalTeams,
		MembersPerTeam: membersPerTeam,
		Teams:          make(map[int]*model.Team),
		CreatedAt:      s.clock.Now().UTC(),
	}
	if err := s.SaveRoom(ctx, room); err != nil {
		return "", err
	}

	log.Info().Str("room_id", room.ID).Int("total_teams", totalTeams).Msg("room created")
	return room.ID, nil
}

// SaveRoom replaces the stored document keyed by room.ID. Last writer wins;
// there is no merge and no version check.
func (s *RoomStore) SaveRoom(ctx context.Context, room *model.Room) error {
	doc := model.NormalizeRoom(room.Clone())
	if err := s.repo.Save(ctx, doc); err != nil {
		return fmt.Errorf("%w: save room %s: %v", ErrStoreUnavailable, doc.ID, err)
	}
	if s.cache != nil {
		if err := s.cache.SetRoom(ctx, doc); err != nil {
			log.Warn().Err(err).Str("room_id", doc.ID).Msg("room cache write failed")
			// a stale entry would shadow the saved document until it expires
			if err := s.cache.Delete(ctx, doc.ID); err != nil {
				log.Error().Err(err).Str("room_id", doc.ID).Msg("room cache evict failed")
			}
		}
	}

	s.mu.Lock()
	s.lastGood[doc.ID] = doc
	s.mu.Unlock()

	s.publish(ctx, cache.RoomChange{RoomID: doc.ID})
	s.fanout()
	return nil
}

// GetRoom returns a point-in-time copy of one room
func (s *RoomStore) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	if s.cache != nil {
		room, err := s.cache.GetRoom(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("room_id", id).Msg("room cache read failed")
		} else if room != nil {
			return room, nil
		}
	}

	room, err := s.repo.Get(ctx, id)
	if err != nil {
		s.mu.Lock()
		stale := s.lastGood[id].Clone()
		s.mu.Unlock()
		return stale, fmt.Errorf("%w: get room %s: %v", ErrStoreUnavailable, id, err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}

	if s.cache != nil {
		if err := s.cache.SetRoom(ctx, room); err != nil {
			log.Warn().Err(err).Str("room_id", id).Msg("room cache fill failed")
		}
	}
	return room, nil
}

// GetRooms returns a point-in-time copy of every room. When the backend is
// unreachable the last good snapshot is returned alongside ErrStoreUnavailable.
func (s *RoomStore) GetRooms(ctx context.Context) (map[string]*model.Room, error) {
	rooms, err := s.repo.List(ctx)
	if err != nil {
		s.mu.Lock()
		stale := model.CloneRooms(s.lastGood)
		s.mu.Unlock()
		return stale, fmt.Errorf("%w: list rooms: %v", ErrStoreUnavailable, err)
	}

	fresh := make(map[string]*model.Room, len(rooms))
	for _, r := range rooms {
		fresh[r.ID] = r
	}

	s.mu.Lock()
	s.lastGood = fresh
	s.mu.Unlock()
	return model.CloneRooms(fresh), nil
}

// ResetRoom replaces a room with its empty-default shape
func (s *RoomStore) ResetRoom(ctx context.Context, id string) error {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	log.Info().Str("room_id", id).Msg("room reset")
	return s.SaveRoom(ctx, room.Reset())
}

// DeleteRoom removes a room document
func (s *RoomStore) DeleteRoom(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: delete room %s: %v", ErrStoreUnavailable, id, err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("room_id", id).Msg("room cache delete failed")
		}
	}

	s.mu.Lock()
	delete(s.lastGood, id)
	s.mu.Unlock()

	s.publish(ctx, cache.RoomChange{RoomID: id, Deleted: true})
	s.fanout()
	return nil
}

// Subscribe registers fn and immediately invokes it with the current room set.
// The first subscriber starts the shared change listener, which then lives for
// the lifetime of the store's context.
func (s *RoomStore) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	s.listenOnce.Do(s.startListening)

	ctx, cancel := context.WithTimeout(s.baseCtx, loadTimeout)
	rooms, err := s.GetRooms(ctx)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("initial room load failed, delivering last known snapshot")
	}

	s.fanoutMu.Lock()
	fn(rooms)
	s.fanoutMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func (s *RoomStore) fanout() {
	s.fanoutMu.Lock()
	defer s.fanoutMu.Unlock()

	s.mu.Lock()
	if len(s.subscribers) == 0 {
		s.mu.Unlock()
		return
	}
	listeners := make([]Listener, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	snapshot := model.CloneRooms(s.lastGood)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(model.CloneRooms(snapshot))
	}
}

func (s *RoomStore) publish(ctx context.Context, change cache.RoomChange) {
	if s.notifier == nil {
		return
	}
	change.Origin = s.origin
	if err := s.notifier.Publish(ctx, change); err != nil {
		log.Warn().Err(err).Str("room_id", change.RoomID).Msg("room change publish failed")
	}
}

func (s *RoomStore) startListening() {
	if s.notifier == nil {
		return
	}
	go func() {
		err := s.notifier.Listen(s.baseCtx, s.applyRemote)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("room change listener stopped")
		}
	}()
	log.Debug().Str("origin", s.origin).Msg("room change listener started")
}

func (s *RoomStore) applyRemote(change cache.RoomChange) {
	if change.Origin == s.origin {
		return
	}

	if change.Deleted {
		s.mu.Lock()
		delete(s.lastGood, change.RoomID)
		s.mu.Unlock()
		s.fanout()
		return
	}

	ctx, cancel := context.WithTimeout(s.baseCtx, loadTimeout)
	defer cancel()
	room, err := s.repo.Get(ctx, change.RoomID)
	if err != nil {
		log.Warn().Err(err).Str("room_id", change.RoomID).Msg("remote room change reload failed")
		return
	}
	if room == nil {
		return
	}

	s.mu.Lock()
	s.lastGood[room.ID] = room
	s.mu.Unlock()
	s.fanout()
}
