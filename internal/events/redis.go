package events

import (
	"context"
	"encoding/json"
	"fmt"

	"reservas/internal/config"

	"github.com/redis/go-redis/v9"
)

// RecentLimit bounds the list of recent events kept next to the channel.
const RecentLimit = 100

// RedisSink publishes events on a pub/sub channel and keeps the most recent
// ones in a capped list at "<channel>:recent" for late readers.
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) RecentKey() string {
	return s.channel + ":recent"
}

func (s *RedisSink) Send(ctx context.Context, event *Event) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, s.channel, data)
		pipe.LPush(ctx, s.RecentKey(), data)
		pipe.LTrim(ctx, s.RecentKey(), 0, RecentLimit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish event to redis: %w", err)
	}
	return nil
}

// Recent returns up to n stored events, newest first.
func (s *RedisSink) Recent(ctx context.Context, n int64) ([]Event, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if n <= 0 {
		n = RecentLimit
	}

	vals, err := s.client.LRange(ctx, s.RecentKey(), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent events: %w", err)
	}

	out := make([]Event, 0, len(vals))
	for _, v := range vals {
		var e Event
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisSink) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Ping checks the connection to Redis.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
