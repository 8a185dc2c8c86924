package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/roadtothesky/internal/config"
)

// NewRedis parses cfg.URL and returns a client that has answered a ping.
// The client backs the world clock and the date change channel.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := waitReady(ctx, "redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
