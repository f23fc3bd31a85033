package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const roomsChannel = "rooms:changed"

// RoomChange announces that a room document was replaced or deleted.
// Origin identifies the writing process so it can skip its own notices.
type RoomChange struct {
	Origin  string `json:"origin"`
	RoomID  string `json:"roomId"`
	Deleted bool   `json:"deleted,omitempty"`
}

// RoomNotifier fans room changes out to every process sharing the store.
type RoomNotifier interface {
	Publish(ctx context.Context, change RoomChange) error
	// Listen blocks, invoking fn for each change, until ctx is done or the connection fails.
	Listen(ctx context.Context, fn func(RoomChange)) error
}

type redisNotifier struct {
	client *redis.Client
}

// NewRoomNotifier creates a Redis pub/sub notifier
func NewRoomNotifier(client *redis.Client) RoomNotifier {
	return &redisNotifier{client: client}
}

func (n *redisNotifier) Publish(ctx context.Context, change RoomChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, roomsChannel, data).Err()
}

func (n *redisNotifier) Listen(ctx context.Context, fn func(RoomChange)) error {
	pubsub := n.client.Subscribe(ctx, roomsChannel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting ready
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var change RoomChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				log.Warn().Err(err).Str("payload", msg.Payload).Msg("dropping malformed room change")
				continue
			}
			fn(change)
		}
	}
}
