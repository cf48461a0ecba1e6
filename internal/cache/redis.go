package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"go_sitectl/internal/config"
)

// pingTimeout bounds the connectivity check on Open
const pingTimeout = 5 * time.Second

// Open connects to the redis instance that backs site locks and lifecycle
// events. The client is returned only after a successful ping.
func Open(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Needed reports whether the configuration uses redis at all
func Needed(cfg *config.Config) bool {
	return cfg.Lock.Backend == config.LockBackendRedis || cfg.Events.Enabled
}
