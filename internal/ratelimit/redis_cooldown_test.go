package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAcquire_FirstCallerWinsWindow(t *testing.T) {
	client, _ := setupTestRedis(t)
	cd := NewRedisCooldown(client, testLogger())
	ctx := context.Background()

	res, err := cd.Acquire(ctx, "rob:g1:u1", time.Minute)

	assert.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.False(t, res.RetryAt.IsZero())
}

func TestAcquire_SecondCallerBlockedUntilExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	cd := NewRedisCooldown(client, testLogger())
	ctx := context.Background()

	first, err := cd.Acquire(ctx, "rob:g1:u1", time.Minute)
	assert.NoError(t, err)
	assert.True(t, first.Allowed)

	second, err := cd.Acquire(ctx, "rob:g1:u1", time.Minute)
	assert.NoError(t, err)
	assert.False(t, second.Allowed)
	assert.False(t, second.RetryAt.IsZero())

	mr.FastForward(time.Minute + time.Second)

	third, err := cd.Acquire(ctx, "rob:g1:u1", time.Minute)
	assert.NoError(t, err)
	assert.True(t, third.Allowed)
}

func TestAcquire_KeysAreIndependent(t *testing.T) {
	client, _ := setupTestRedis(t)
	cd := NewRedisCooldown(client, testLogger())
	ctx := context.Background()

	first, err := cd.Acquire(ctx, "rob:g1:u1", time.Minute)
	assert.NoError(t, err)
	assert.True(t, first.Allowed)

	other, err := cd.Acquire(ctx, "rob:g1:u2", time.Minute)
	assert.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestAcquire_NonPositiveWindowAlwaysAllows(t *testing.T) {
	client, _ := setupTestRedis(t)
	cd := NewRedisCooldown(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := cd.Acquire(ctx, "rob:g1:u1", 0)
		assert.NoError(t, err)
		assert.True(t, res.Allowed)
	}
}

func TestRelease_FreesWindowEarly(t *testing.T) {
	client, _ := setupTestRedis(t)
	cd := NewRedisCooldown(client, testLogger())
	ctx := context.Background()

	first, err := cd.Acquire(ctx, "robpair:g1:u1:u2", time.Hour)
	assert.NoError(t, err)
	assert.True(t, first.Allowed)

	assert.NoError(t, cd.Release(ctx, "robpair:g1:u1:u2"))

	second, err := cd.Acquire(ctx, "robpair:g1:u1:u2", time.Hour)
	assert.NoError(t, err)
	assert.True(t, second.Allowed)
}

func TestAcquire_NoClientConfigured(t *testing.T) {
	cd := NewRedisCooldown(nil, testLogger())

	_, err := cd.Acquire(context.Background(), "rob:g1:u1", time.Minute)

	assert.Error(t, err)
}
