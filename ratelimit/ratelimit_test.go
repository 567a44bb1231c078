package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rl, err := NewRateLimiter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rl.Close() })
	return rl, mr
}

func TestAllow(t *testing.T) {
	rl, _ := setupTestRedis(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ok, count, err := rl.Allow(ctx, "invite:alice", 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, count)
	}

	ok, count, err := rl.Allow(ctx, "invite:alice", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, count)

	ok, _, err = rl.Allow(ctx, "invite:bob", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "keys are counted separately")
}

func TestAllowSetsExpiry(t *testing.T) {
	rl, mr := setupTestRedis(t)

	_, _, err := rl.Allow(context.Background(), "write:alice", 1, time.Minute)
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))
}

func TestAllowRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rl := NewRateLimiterFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer rl.Close()
	mr.Close()

	_, _, err = rl.Allow(context.Background(), "k", 1, time.Minute)
	assert.Error(t, err)
}

func TestNewRateLimiterInvalidURL(t *testing.T) {
	_, err := NewRateLimiter("not a url")
	assert.Error(t, err)
}
