package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache tracks server-side sessions with a sliding idle window.
// A key that has expired means the session is over.
type SessionCache interface {
	Start(ctx context.Context, sessionID string) error
	Touch(ctx context.Context, sessionID string) (bool, error)
	End(ctx context.Context, sessionID string) error
}

type sessionCache struct {
	client *redis.Client
	idle   time.Duration
}

func NewSessionCache(client *redis.Client, idle time.Duration) SessionCache {
	return &sessionCache{
		client: client,
		idle:   idle,
	}
}

func (c *sessionCache) key(sessionID string) string {
	return "session:" + sessionID
}

func (c *sessionCache) Start(ctx context.Context, sessionID string) error {
	return c.client.Set(ctx, c.key(sessionID), time.Now().Unix(), c.idle).Err()
}

// Touch pushes the expiry out by the idle window. It reports false once the session is gone.
func (c *sessionCache) Touch(ctx context.Context, sessionID string) (bool, error) {
	return c.client.Expire(ctx, c.key(sessionID), c.idle).Result()
}

func (c *sessionCache) End(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID)).Err()
}
