package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aura-live/showcase/internal/models"
)

const (
	// LifecycleChannel carries session started/ended signals from the control plane.
	LifecycleChannel = "showcase:lifecycle"
	publishTimeout   = 5 * time.Second
)

// redisPayload is the message published to Redis.
type redisPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

// RedisPubSub carries session lifecycle signals over Redis pub/sub.
type RedisPubSub struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for lifecycle signals.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, channel: LifecycleChannel, logger: logger}
}

// NotifyStatusChange publishes a session status change.
func (r *RedisPubSub) NotifyStatusChange(ctx context.Context, change models.SessionStatusChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	event := EventSessionStarted
	if change.Status == models.SessionEnded {
		event = EventSessionEnded
	}
	body, err := json.Marshal(redisPayload{Event: event, Data: data, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
		return fmt.Errorf("publish lifecycle: %w", err)
	}
	return nil
}

// SubscribeStatusChanges delivers lifecycle signals to handler until ctx is done.
func (r *RedisPubSub) SubscribeStatusChanges(ctx context.Context, handler func(models.SessionStatusChange)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	r.logger.Info("subscribed to lifecycle channel", zap.String("channel", r.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var p redisPayload
			if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
				r.logger.Warn("invalid lifecycle payload", zap.Error(err))
				continue
			}
			var change models.SessionStatusChange
			if err := json.Unmarshal(p.Data, &change); err != nil {
				r.logger.Warn("invalid lifecycle payload", zap.String("event", p.Event), zap.Error(err))
				continue
			}
			handler(change)
		}
	}
}
