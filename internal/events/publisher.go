package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Event is a lifecycle transition broadcast to subscribers
type Event struct {
	OperationID string                 `json:"operationId"`
	Site        string                 `json:"site"`
	Action      string                 `json:"action"`
	Status      string                 `json:"status"`
	Level       int                    `json:"level"`
	Error       string                 `json:"error,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Time        time.Time              `json:"time"`
}

// Publisher sends lifecycle events
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// RedisPublisher publishes events as JSON on a pub/sub channel
type RedisPublisher struct {
	Client  *redis.Client
	Channel string
}

// NewRedisPublisher creates a redis pub/sub publisher
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{Client: client, Channel: channel}
}

// Publish implements Publisher
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.Client.Publish(ctx, p.Channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event on %s: %w", p.Channel, err)
	}
	return nil
}

// Noop drops every event
type Noop struct{}

// Publish implements Publisher
func (Noop) Publish(context.Context, Event) error { return nil }
