package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Locker interface {
	// Lock returns a release func when the key was acquired, nil when someone else holds it.
	Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

type RedisLock struct {
	client *redis.Client
}

// releaseScript deletes the key only if it still holds our owner value.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

func SlotKey(slotID int64) string {
	return fmt.Sprintf("slot:%d", slotID)
}

func (r *RedisLock) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	const op = "lock.RedisLock.Lock"

	lockKey := fmt.Sprintf("lock:%s", key)
	owner := uuid.NewString()

	ok, err := r.client.SetNX(ctx, lockKey, owner, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		return nil, nil
	}

	release := func(ctx context.Context) error {
		const op = "lock.RedisLock.Unlock"

		if err := releaseScript.Run(ctx, r.client, []string{lockKey}, owner).Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	return release, nil
}
