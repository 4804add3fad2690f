// internal/pkg/lock/redis.go
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisLocker is a Locker shared by every API instance
type RedisLocker struct {
	client     redis.Cmdable
	ttl        time.Duration
	retryDelay time.Duration
	newToken   func() string
}

// NewRedisLocker creates a Redis-backed Locker. ttl bounds how long a crashed holder can block a key.
func NewRedisLocker(client redis.Cmdable, ttl, retryDelay time.Duration) *RedisLocker {
	return &RedisLocker{
		client:     client,
		ttl:        ttl,
		retryDelay: retryDelay,
		newToken:   uuid.NewString,
	}
}

// Lock polls SETNX until the key is ours or ctx is done
func (r *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	token := r.newToken()

	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrNotAcquired, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}
		if ok {
			return r.unlocker(lockKey, token), nil
		}

		timer := time.NewTimer(r.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-timer.C:
		}
	}
}

func (r *RedisLocker) unlocker(lockKey, token string) Unlock {
	return func() error {
		// release even if the request context is already gone
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := r.client.Eval(ctx, releaseScript, []string{lockKey}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", lockKey, err)
		}
		return nil
	}
}
