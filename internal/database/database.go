// Package database owns the MoodWise storage connections: the MariaDB
// pool for users, notes, reset tokens and conversations, and the Redis
// client used by the Redis reset-token backend. Both are opened once at
// startup and injected into the plugins.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// healthTimeout bounds a single /healthz probe.
const healthTimeout = 2 * time.Second

// retryPolicy controls how long startup waits for a backing service.
// Containers for MariaDB and Redis are often still booting when the app
// starts.
type retryPolicy struct {
	attempts    int
	pingTimeout time.Duration
	backoff     time.Duration
	maxBackoff  time.Duration
}

var startupRetry = retryPolicy{
	attempts:    10,
	pingTimeout: 5 * time.Second,
	backoff:     time.Second,
	maxBackoff:  30 * time.Second,
}

// waitUntilReady pings until the service answers, the attempts run out or
// ctx is cancelled.
func waitUntilReady(ctx context.Context, name string, p retryPolicy, ping func(context.Context) error) error {
	backoff := p.backoff
	var err error

	for attempt := 1; attempt <= p.attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, p.pingTimeout)
		err = ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == p.attempts {
			break
		}

		slog.Warn(name+" not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.attempts),
			slog.Duration("backoff", backoff),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", name, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, p.maxBackoff)
	}

	return fmt.Errorf("pinging %s after %d attempts: %w", name, p.attempts, err)
}

// Ping checks that MariaDB and Redis both answer. It backs GET /healthz.
func Ping(ctx context.Context, db *sql.DB, rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging mariadb: %w", err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}
