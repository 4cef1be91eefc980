package cloud

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisChannel implements Channel over Redis Pub/Sub. It is the production
// transport bridging this node to the remote authority's broker.
type RedisChannel struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisChannel(client *redis.Client, logger *zap.Logger) *RedisChannel {
	return &RedisChannel{client: client, logger: logger}
}

func (c *RedisChannel) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := c.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

func (c *RedisChannel) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	pubsub := c.client.Subscribe(ctx, topic)

	// Force the subscription to be established before returning, so callers
	// don't publish into a topic nobody listens on yet.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer func() {
			if err := pubsub.Close(); err != nil {
				c.logger.Warn("redis pubsub close", zap.String("topic", topic), zap.Error(err))
			}
		}()

		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
