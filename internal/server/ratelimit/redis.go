package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares windows between server instances. Each window is one
// counter key that expires with the window.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLimiter(client redis.UniversalClient, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if l.client == nil {
		return false, 0, errors.New("redis client is nil")
	}
	if key == "" {
		key = "unknown"
	}
	storeKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, storeKey)
	pttl := pipe.PTTL(ctx, storeKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	ttl := pttl.Val()
	// A fresh counter, or one left without expiry by an interrupted caller.
	if incr.Val() == 1 || ttl < 0 {
		if err := l.client.PExpire(ctx, storeKey, window).Err(); err != nil {
			return false, 0, err
		}
		ttl = window
	}

	if incr.Val() > int64(limit) {
		return false, ttl, nil
	}
	return true, 0, nil
}
