package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/moodwise/internal/config"
)

// NewRedis builds a client from REDIS_URL and waits for the server the
// same way NewMariaDB does.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := waitUntilReady(ctx, "redis", startupRetry, ping); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
