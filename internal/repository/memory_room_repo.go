package repository

import (
	"context"
	"sort"
	"sync"
	"teamquest/internal/model"
)

// MemoryRoomRepo is an in-process RoomRepo used by tests and local runs without Mongo.
type MemoryRoomRepo struct {
	mu    sync.RWMutex
	rooms map[string]*model.Room

	// Err, when set, is returned by every call to simulate an unavailable backend.
	Err error
}

// NewMemoryRoomRepo creates an empty in-memory repository
func NewMemoryRoomRepo() *MemoryRoomRepo {
	return &MemoryRoomRepo{
		rooms: make(map[string]*model.Room),
	}
}

func (r *MemoryRoomRepo) Save(ctx context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.rooms[room.ID] = room.Clone()
	return nil
}

func (r *MemoryRoomRepo) Get(ctx context.Context, id string) (*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	room, ok := r.rooms[id]
	if !ok {
		return nil, nil
	}
	return model.NormalizeRoom(room.Clone()), nil
}

func (r *MemoryRoomRepo) List(ctx context.Context) ([]*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	rooms := make([]*model.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, model.NormalizeRoom(room.Clone()))
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (r *MemoryRoomRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	delete(r.rooms, id)
	return nil
}

// SetErr toggles simulated backend failure.
func (r *MemoryRoomRepo) SetErr(err error) {
	r.mu.Lock()
	r.Err = err
	r.mu.Unlock()
}
