package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiter_Window(t *testing.T) {
	l := NewLocalLimiter()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, "1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i)
	}

	ok, retry, err := l.Allow(ctx, "1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	ok, _, _ = l.Allow(ctx, "5.6.7.8", 3, time.Minute)
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, _, _ = l.Allow(ctx, "1.2.3.4", 3, time.Minute)
	assert.True(t, ok, "new window")
}

func newRedisLimiterForTest(t *testing.T) (*miniredis.Miniredis, *RedisLimiter) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, NewRedisLimiter(client, "rl_test")
}

func TestRedisLimiter_AllowThenDeny(t *testing.T) {
	m, l := newRedisLimiterForTest(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "ip", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, retry, err := l.Allow(ctx, "ip", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)

	assert.Equal(t, "3", mustGet(t, m, "rl_test:ip"))

	m.FastForward(time.Minute + time.Second)
	ok, _, err = l.Allow(ctx, "ip", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "window expired")
}

func TestRedisLimiter_RepairsMissingExpiry(t *testing.T) {
	m, l := newRedisLimiterForTest(t)
	require.NoError(t, m.Set("rl_test:ip", "5"))

	ok, _, err := l.Allow(context.Background(), "ip", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, m.TTL("rl_test:ip"), time.Duration(0))
}

func TestRedisLimiter_EmptyKeyAndErrors(t *testing.T) {
	m, l := newRedisLimiterForTest(t)
	ok, _, err := l.Allow(context.Background(), "", 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, m.Exists("rl_test:unknown"))

	_, _, err = NewRedisLimiter(nil, "").Allow(context.Background(), "k", 1, time.Second)
	assert.Error(t, err)

	bad := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 20 * time.Millisecond})
	t.Cleanup(func() { _ = bad.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, _, err = NewRedisLimiter(bad, "").Allow(ctx, "k", 1, time.Second)
	assert.Error(t, err)
}

func mustGet(t *testing.T, m *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := m.Get(key)
	require.NoError(t, err)
	return v
}
