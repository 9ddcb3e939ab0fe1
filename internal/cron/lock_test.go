package cron

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

func newLockClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.New(context.Background(), config.RedisConfig{Address: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisLockIsExclusive(t *testing.T) {
	client, mr := newLockClient(t)
	ctx := context.Background()
	key := client.LockKey("cron")

	first, err := NewRedisLock(client, key, time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(client, key, time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL(key))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(ctx))
	assert.True(t, mr.Exists(key), "non-owner release must keep the lock")

	require.NoError(t, first.Release(ctx))
	assert.False(t, mr.Exists(key))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	client, mr := newLockClient(t)
	ctx := context.Background()

	lock, err := NewRedisLock(client, client.LockKey("cron"), time.Second)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	assert.NoError(t, lock.Release(ctx))
}

func TestNewRedisLockValidation(t *testing.T) {
	_, err := NewRedisLock(nil, "k", time.Minute)
	assert.Error(t, err)
	client, _ := newLockClient(t)
	_, err = NewRedisLock(client, "", time.Minute)
	assert.Error(t, err)
}

func TestRedisLockExpiredHolderCannotFreeNewOwner(t *testing.T) {
	client, mr := newLockClient(t)
	ctx := context.Background()
	key := client.LockKey("cron")

	stale, err := NewRedisLock(client, key, time.Second)
	require.NoError(t, err)
	fresh, err := NewRedisLock(client, key, time.Minute)
	require.NoError(t, err)

	ok, err := stale.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	mr.FastForward(2 * time.Second)

	ok, err = fresh.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists(key))
}
