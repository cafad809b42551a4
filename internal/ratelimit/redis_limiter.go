// Package ratelimit implements a fixed-window request counter on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow counts one hit for key. The window starts with the first hit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := l.prefix + key

	var incr *redis.IntCmd
	var ttlCmd *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttlCmd = pipe.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("incr rate counter: %w", err)
	}
	n, ttl := incr.Val(), ttlCmd.Val()

	// A fresh counter has no expiry yet, nor does one whose EXPIRE was lost.
	// Either way the next hit retries until the window is set.
	if ttl < 0 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("expire rate counter: %w", err)
		}
		ttl = l.window
	}

	res := Result{
		Allowed:   n <= int64(l.limit),
		Limit:     l.limit,
		Remaining: l.limit - int(n),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}
