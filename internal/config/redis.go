package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SetupRedis connects to the configured Redis instance and verifies the
// connection with a ping. Returns (nil, nil) when redis is disabled; callers
// treat a nil client as "no cache".
func SetupRedis(cfg *RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connected", slog.String("addr", opt.Addr))
	return client, nil
}

// RedisTTL returns the configured cache TTL, defaulting to one hour.
func RedisTTL(cfg *RedisConfig) time.Duration {
	if cfg == nil || cfg.TTL == "" {
		return time.Hour
	}
	d, err := time.ParseDuration(cfg.TTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}
