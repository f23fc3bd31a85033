package service

import (
	"context"
	"fmt"
	"teamquest/internal/cache"
	"teamquest/internal/model"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TeamService enforces per-team join, identity and round rules on top of
// whole-document room writes. Each operation is read-modify-write against the
// latest snapshot; concurrent writers are resolved by last-writer-wins.
type TeamService struct {
	rooms       RoomStore
	clock       clockwork.Clock
	leaderboard cache.LeaderboardCache
}

// NewTeamService creates a new team service
func NewTeamService(rooms RoomStore, clock clockwork.Clock) *TeamService {
	return &TeamService{
		rooms: rooms,
		clock: clock,
	}
}

// SetLeaderboard sets the mini-game leaderboard
func (s *TeamService) SetLeaderboard(lb cache.LeaderboardCache) {
	s.leaderboard = lb
}

// JoinRequest is what a learner submits when claiming a team
type JoinRequest struct {
	Members           []model.Member `json:"members"`
	RoundInstructions map[int]string `json:"roundInstructions,omitempty"`
}

// JoinTeam claims or reconnects to a team. The first successful join records
// the leader name; later joins must present the same leader.
func (s *TeamService) JoinTeam(ctx context.Context, roomID string, teamID int, req JoinRequest) (*model.Team, error) {
	members := model.NormalizeMembers(req.Members)
	leader := model.LeaderOf(members)
	if leader == "" {
		return nil, ErrLeaderRequired
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasTeamID(teamID) {
		return nil, fmt.Errorf("%w: %d (room has %d teams)", ErrInvalidTeam, teamID, room.TotalTeams)
	}

	if existing := room.Team(teamID); existing != nil && existing.IsJoined && existing.LeaderName() != leader {
		log.Info().
			Str("room_id", roomID).
			Int("team_id", teamID).
			Msg("join rejected: leader mismatch")
		return nil, ErrIdentityConflict
	}

	team := room.EnsureTeam(teamID)
	team.Members = members
	team.IsJoined = true
	for round, text := range req.RoundInstructions {
		if !model.ValidRound(round) {
			continue
		}
		if _, ok := team.RoundInstructions[round]; !ok {
			team.RoundInstructions[round] = text
		}
	}

	if err := s.rooms.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	log.Info().
		Str("room_id", roomID).
		Int("team_id", teamID).
		Str("leader", leader).
		Msg("team joined")
	return team.Clone(), nil
}

// UpdateTeamRound clamps round to [1,10] and stores it. Absent teams are left alone.
func (s *TeamService) UpdateTeamRound(ctx context.Context, roomID string, teamID, round int) (*model.Team, error) {
	return s.mutateTeam(ctx, roomID, teamID, false, func(t *model.Team) error {
		t.CurrentRound = model.ClampRound(round)
		return nil
	})
}

// SetRoundInstruction overrides one round's instructions, creating the team
// entry if needed. Empty text restores the default content.
func (s *TeamService) SetRoundInstruction(ctx context.Context, roomID string, teamID, round int, text string) (*model.Team, error) {
	if !model.ValidRound(round) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRound, round)
	}
	return s.mutateTeam(ctx, roomID, teamID, true, func(t *model.Team) error {
		if text == "" {
			delete(t.RoundInstructions, round)
		} else {
			t.RoundInstructions[round] = text
		}
		return nil
	})
}

// RecordHelp appends a help usage for the given round
func (s *TeamService) RecordHelp(ctx context.Context, roomID string, teamID, round int) (*model.Team, error) {
	if !model.ValidRound(round) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRound, round)
	}
	now := s.clock.Now().UTC()
	return s.mutateTeam(ctx, roomID, teamID, false, func(t *model.Team) error {
		t.HelpUsages = append(t.HelpUsages, model.HelpUsage{Round: round, UsedAt: now})
		t.HelpCount++
		return nil
	})
}

// RecordRoundTime stores how long the team spent on a round
func (s *TeamService) RecordRoundTime(ctx context.Context, roomID string, teamID, round, seconds int) (*model.Team, error) {
	if !model.ValidRound(round) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRound, round)
	}
	if seconds < 0 {
		return nil, fmt.Errorf("%w: seconds must not be negative", ErrInvalidValue)
	}
	return s.mutateTeam(ctx, roomID, teamID, false, func(t *model.Team) error {
		t.RoundTimes[round] = seconds
		return nil
	})
}

// AddBonusTime adds earned bonus seconds
func (s *TeamService) AddBonusTime(ctx context.Context, roomID string, teamID, seconds int) (*model.Team, error) {
	if seconds <= 0 {
		return nil, fmt.Errorf("%w: bonus must be positive", ErrInvalidValue)
	}
	return s.mutateTeam(ctx, roomID, teamID, false, func(t *model.Team) error {
		t.TotalBonusTime += seconds
		return nil
	})
}

// MarkMissionClear records the clear time once; later calls keep the first value
func (s *TeamService) MarkMissionClear(ctx context.Context, roomID string, teamID int) (*model.Team, error) {
	now := s.clock.Now().UTC()
	return s.mutateTeam(ctx, roomID, teamID, false, func(t *model.Team) error {
		if t.MissionClearTime == nil {
			t.MissionClearTime = &now
			t.CurrentRound = model.LastRound
		}
		return nil
	})
}

// RecordMiniGame stores a completed mini-game result, keeping the best score.
// A cancelled outcome changes nothing.
func (s *TeamService) RecordMiniGame(ctx context.Context, roomID string, teamID int, game model.MiniGame, outcome model.MiniGameOutcome) (*model.Team, error) {
	if !game.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMiniGame, game)
	}
	if !outcome.Completed {
		log.Debug().Str("room_id", roomID).Int("team_id", teamID).Str("game", string(game)).Msg("mini-game cancelled")
		return nil, nil
	}
	if outcome.Score < 0 {
		return nil, fmt.Errorf("%w: score must not be negative", ErrInvalidValue)
	}

	team, err := s.mutateTeam(ctx, roomID, teamID, false, func(t *model.Team) error {
		if best, ok := t.MiniGameScores[string(game)]; !ok || outcome.Score > best {
			t.MiniGameScores[string(game)] = outcome.Score
		}
		return nil
	})
	if err != nil || team == nil {
		return team, err
	}

	if s.leaderboard != nil {
		if err := s.leaderboard.UpdateBest(ctx, roomID, string(game), teamID, outcome.Score); err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Int("team_id", teamID).Msg("leaderboard update failed")
		}
	}
	return team, nil
}

// Leaderboard returns the top teams for a mini-game
func (s *TeamService) Leaderboard(ctx context.Context, roomID string, game model.MiniGame, limit int) ([]cache.LeaderboardEntry, error) {
	if !game.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMiniGame, game)
	}
	if s.leaderboard == nil {
		return []cache.LeaderboardEntry{}, nil
	}
	return s.leaderboard.GetTop(ctx, roomID, string(game), limit)
}

// mutateTeam reads the room, applies fn to the team and saves the whole room.
// With create unset, a missing team makes the call a no-op returning nil.
func (s *TeamService) mutateTeam(ctx context.Context, roomID string, teamID int, create bool, fn func(t *model.Team) error) (*model.Team, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasTeamID(teamID) {
		return nil, fmt.Errorf("%w: %d (room has %d teams)", ErrInvalidTeam, teamID, room.TotalTeams)
	}

	var team *model.Team
	if create {
		team = room.EnsureTeam(teamID)
	} else if team = room.Team(teamID); team == nil {
		return nil, nil
	}

	if err := fn(team); err != nil {
		return nil, err
	}
	if err := s.rooms.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return team.Clone(), nil
}
