package syncbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRelay mirrors bus events through a Redis Pub/Sub channel so that
// observers attached to other processes are notified too. Events are tagged
// with the bus origin and never echoed back to their sender.
type RedisRelay struct {
	client  *redis.Client
	channel string
	bus     *Bus
	logger  *zap.Logger
	ready   chan struct{}
}

func NewRedisRelay(client *redis.Client, channel string, bus *Bus, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		bus:     bus,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the Redis subscription is confirmed.
func (r *RedisRelay) Ready() <-chan struct{} { return r.ready }

// Run relays until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	local := r.bus.Subscribe()
	defer local.Close()
	remote := pubsub.Channel()
	close(r.ready)
	r.logger.Info("sync_relay_started", zap.String("channel", r.channel), zap.String("origin", r.bus.Origin()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-local.C():
			if !ok {
				return nil
			}
			if ev.Origin != r.bus.Origin() {
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				r.logger.Warn("sync_relay_encode_failed", zap.Error(err))
				continue
			}
			if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
				r.logger.Warn("sync_relay_publish_failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
			}
		case msg, ok := <-remote:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.logger.Warn("sync_relay_decode_failed", zap.Error(err))
				continue
			}
			if ev.Origin == r.bus.Origin() {
				continue
			}
			r.bus.Deliver(ev)
		}
	}
}
