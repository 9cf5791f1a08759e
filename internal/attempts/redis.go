// Package attempts counts admin login attempts per client within a sliding window.
package attempts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCounter struct {
	client *redis.Client
	window time.Duration
}

func NewRedisCounter(client *redis.Client, window time.Duration) *RedisCounter {
	return &RedisCounter{client: client, window: window}
}

func key(ip string) string {
	return fmt.Sprintf("login_attempts:%s", ip)
}

// Hit records an attempt and returns how many were made in the current
// window. The window restarts on every attempt.
func (c *RedisCounter) Hit(ctx context.Context, ip string) (int, error) {
	const op = "attempts.RedisCounter.Hit"

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key(ip))
	pipe.Expire(ctx, key(ip), c.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return int(incr.Val()), nil
}

func (c *RedisCounter) Reset(ctx context.Context, ip string) error {
	const op = "attempts.RedisCounter.Reset"

	if err := c.client.Del(ctx, key(ip)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
