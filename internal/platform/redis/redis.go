package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Connect parses a redis:// URL and verifies connectivity.
func Connect(ctx context.Context, redisURL string) (*goredis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis URL is empty")
	}
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := goredis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// Open connects using redisURL and returns the client plus a cleanup function.
func Open(ctx context.Context, redisURL string, logger *slog.Logger) (*goredis.Client, func(), error) {
	rdb, err := Connect(ctx, redisURL)
	if err != nil {
		return nil, func() {}, fmt.Errorf("connect redis: %w", err)
	}
	if logger != nil {
		logger.Info("redis connection established", slog.String("addr", rdb.Options().Addr))
	}
	return rdb, func() { _ = rdb.Close() }, nil
}
