package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds locks as SET NX keys with a ttl. The token check on
// release keeps an expired holder from deleting a successor's lock.
type RedisLocker struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

// NewRedisLocker creates a redis-backed locker
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{Client: client, Prefix: "sitectl:lock:", TTL: ttl}
}

// Acquire implements Locker
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func() error, error) {
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, l.Prefix+key, token, l.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire redis lock for %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrLocked)
	}

	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		// release must run even after the operation context was cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.Client, []string{l.Prefix + key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("failed to release redis lock for %s: %w", key, err)
		}
		return nil
	}, nil
}
