package service

import (
	"context"
	"fmt"
	"sort"
	"teamquest/internal/cache"
	"teamquest/internal/model"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RoomService handles room lifecycle operations
type RoomService struct {
	rooms       RoomStore
	clock       clockwork.Clock
	leaderboard cache.LeaderboardCache
	broadcaster Broadcaster
	judge       *JudgeService
}

// NewRoomService creates a new room service
func NewRoomService(rooms RoomStore, clock clockwork.Clock) *RoomService {
	return &RoomService{
		rooms: rooms,
		clock: clock,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *RoomService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetLeaderboard sets the mini-game leaderboard cleared on reset
func (s *RoomService) SetLeaderboard(lb cache.LeaderboardCache) {
	s.leaderboard = lb
}

// SetJudge sets the judge whose per-team budgets are dropped with the room
func (s *RoomService) SetJudge(j *JudgeService) {
	s.judge = j
}

// CreateRoomRequest is the admin's room configuration
type CreateRoomRequest struct {
	GroupName      string `json:"groupName"`
	TotalTeams     int    `json:"totalTeams"`
	MembersPerTeam int    `json:"membersPerTeam"`
	IndustryType   string `json:"industryType"`
}

// CreateRoom creates an empty room and returns it
func (s *RoomService) CreateRoom(ctx context.Context, req CreateRoomRequest) (*model.Room, error) {
	id, err := s.rooms.CreateRoom(ctx, req.GroupName, req.TotalTeams, req.MembersPerTeam, req.IndustryType)
	if err != nil {
		return nil, err
	}
	return s.rooms.GetRoom(ctx, id)
}

// GetRoom retrieves a room by id
func (s *RoomService) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	return s.rooms.GetRoom(ctx, id)
}

// ListRooms returns every room ordered by creation time. On store failure the
// last good snapshot is returned together with the error.
func (s *RoomService) ListRooms(ctx context.Context) ([]*model.Room, error) {
	set, err := s.rooms.GetRooms(ctx)
	rooms := make([]*model.Room, 0, len(set))
	for _, r := range set {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, err
}

// RenameGroup sets the display label
func (s *RoomService) RenameGroup(ctx context.Context, id, groupName string) (*model.Room, error) {
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	room.GroupName = groupName
	if err := s.rooms.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// StartMission flips missionStarted once. A second call keeps the original start.
func (s *RoomService) StartMission(ctx context.Context, id string, timerMinutes int) (*model.Room, error) {
	if timerMinutes < 0 {
		return nil, fmt.Errorf("%w: timer minutes must not be negative", ErrInvalidValue)
	}
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if room.MissionStarted {
		return room, nil
	}

	now := s.clock.Now().UTC()
	room.MissionStarted = true
	room.MissionStartTime = &now
	room.MissionTimerMinutes = timerMinutes

	if err := s.rooms.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	log.Info().Str("room_id", id).Int("timer_minutes", timerMinutes).Msg("mission started")
	return room, nil
}

// ResetRoom wipes teams and mission progress
func (s *RoomService) ResetRoom(ctx context.Context, id string) error {
	if err := s.rooms.ResetRoom(ctx, id); err != nil {
		return err
	}
	s.releaseTeamState(ctx, id)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(id, "room_reset", map[string]string{"roomId": id})
	}
	return nil
}

// DeleteRoom removes a room and drops its websocket clients
func (s *RoomService) DeleteRoom(ctx context.Context, id string) error {
	if _, err := s.rooms.GetRoom(ctx, id); err != nil {
		return err
	}
	if err := s.rooms.DeleteRoom(ctx, id); err != nil {
		return err
	}
	s.releaseTeamState(ctx, id)
	if s.broadcaster != nil {
		s.broadcaster.DisconnectRoom(id)
	}
	log.Info().Str("room_id", id).Msg("room deleted")
	return nil
}

// releaseTeamState drops per-team state kept outside the room document
func (s *RoomService) releaseTeamState(ctx context.Context, id string) {
	if s.leaderboard != nil {
		if err := s.leaderboard.Clear(ctx, id, string(model.MiniGameCPR), string(model.MiniGameRelay)); err != nil {
			log.Warn().Err(err).Str("room_id", id).Msg("leaderboard clear failed")
		}
	}
	if s.judge != nil {
		s.judge.ForgetRoom(id)
	}
}
