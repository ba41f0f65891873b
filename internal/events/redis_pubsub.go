package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher sends events as JSON on the redis channel named after the stream.
type RedisPublisher struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisPublisher(client *redis.Client, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, stream string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	receivers, err := p.client.Publish(ctx, stream, data).Result()
	if err != nil {
		return fmt.Errorf("publish %s on %s: %w", event.Type, stream, err)
	}
	p.log.Debug("event published",
		zap.String("stream", stream),
		zap.String("type", event.Type),
		zap.Int64("receivers", receivers),
	)
	return nil
}

type RedisSubscriber struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisSubscriber(client *redis.Client, log *zap.Logger) *RedisSubscriber {
	return &RedisSubscriber{client: client, log: log}
}

// Subscribe delivers messages from streams to handler until ctx is cancelled. The
// handler runs on a single goroutine, in message order.
func (s *RedisSubscriber) Subscribe(ctx context.Context, handler func(stream string, event Event), streams ...string) error {
	pubsub := s.client.Subscribe(ctx, streams...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %v: %w", streams, err)
	}
	s.log.Info("subscribed to event streams", zap.Strings("streams", streams))
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					s.log.Warn("dropping malformed event", zap.String("stream", msg.Channel), zap.Error(err))
					continue
				}
				handler(msg.Channel, event)
			}
		}
	}()

	return nil
}
