package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/udayhese96/Gemscap-Assignment/internal/alert"
	"github.com/udayhese96/Gemscap-Assignment/internal/config"
)

// RedisSink publishes alerts as JSON on a Redis pub/sub channel so
// downstream consumers (dashboards, notifiers) can react without polling
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink connects to Redis and verifies the connection with a ping
func NewRedisSink(ctx context.Context, cfg config.RedisConfig) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisSink{client: client, channel: cfg.Channel}, nil
}

// Publish marshals the alert and publishes it on the configured channel
func (s *RedisSink) Publish(ctx context.Context, a alert.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}

// Close releases the Redis connection
func (s *RedisSink) Close() error {
	return s.client.Close()
}
