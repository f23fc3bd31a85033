package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache handles Redis ZSET operations for per-room mini-game rankings
type LeaderboardCache interface {
	UpdateBest(ctx context.Context, roomID, game string, teamID, score int) error
	GetTop(ctx context.Context, roomID, game string, limit int) ([]LeaderboardEntry, error)
	Clear(ctx context.Context, roomID string, games ...string) error
}

// LeaderboardEntry represents a single leaderboard entry
type LeaderboardEntry struct {
	TeamID int `json:"teamId"`
	Score  int `json:"score"`
	Rank   int `json:"rank"`
}

type leaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
	}
}

func (c *leaderboardCache) key(roomID, game string) string {
	return fmt.Sprintf("room:%s:minigame:%s", roomID, game)
}

// UpdateBest only ever raises a team's score
func (c *leaderboardCache) UpdateBest(ctx context.Context, roomID, game string, teamID, score int) error {
	return c.client.ZAddGT(ctx, c.key(roomID, game), redis.Z{
		Score:  float64(score),
		Member: strconv.Itoa(teamID),
	}).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, roomID, game string, limit int) ([]LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(roomID, game), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		teamID, err := strconv.Atoi(member)
		if err != nil {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			TeamID: teamID,
			Score:  int(z.Score),
			Rank:   i + 1,
		})
	}
	return entries, nil
}

func (c *leaderboardCache) Clear(ctx context.Context, roomID string, games ...string) error {
	if len(games) == 0 {
		return nil
	}
	keys := make([]string, len(games))
	for i, g := range games {
		keys[i] = c.key(roomID, g)
	}
	return c.client.Del(ctx, keys...).Err()
}
