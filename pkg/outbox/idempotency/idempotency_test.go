package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

func newManager(t *testing.T, ttl time.Duration) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.New(context.Background(), config.RedisConfig{Address: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	m, err := NewManager(client, ttl)
	require.NoError(t, err)
	m.now = func() time.Time { return time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC) }
	return m, mr
}

func TestClaimIsPerConsumerAndExpires(t *testing.T) {
	m, mr := newManager(t, time.Hour)
	ctx := context.Background()
	eventID := uuid.New()
	key := "sf:idempotency:evt:processed:order-email:" + eventID.String()

	dup, err := m.CheckAndMarkProcessed(ctx, "order-email", eventID)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Equal(t, time.Hour, mr.TTL(key))
	stored, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "2026-04-02T09:30:00Z", stored)

	dup, err = m.CheckAndMarkProcessed(ctx, "order-email", eventID)
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = m.CheckAndMarkProcessed(ctx, "order-audit", eventID)
	require.NoError(t, err)
	assert.False(t, dup, "claims do not cross consumers")

	mr.FastForward(2 * time.Hour)
	dup, err = m.CheckAndMarkProcessed(ctx, "order-email", eventID)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestDeleteReleasesClaim(t *testing.T) {
	m, _ := newManager(t, time.Hour)
	ctx := context.Background()
	eventID := uuid.New()

	_, err := m.CheckAndMarkProcessed(ctx, "order-audit", eventID)
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, "order-audit", eventID))

	dup, err := m.CheckAndMarkProcessed(ctx, "order-audit", eventID)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestInvalidInputs(t *testing.T) {
	m, _ := newManager(t, time.Hour)
	ctx := context.Background()

	_, err := m.CheckAndMarkProcessed(ctx, "", uuid.New())
	assert.ErrorIs(t, err, errNoConsumer)
	_, err = m.CheckAndMarkProcessed(ctx, "order-email", uuid.Nil)
	assert.ErrorIs(t, err, errNoEventID)
	assert.ErrorIs(t, m.Delete(ctx, "order-email", uuid.Nil), errNoEventID)

	_, err = NewManager(nil, time.Hour)
	assert.Error(t, err)
}

func TestStoreErrorsSurface(t *testing.T) {
	m, mr := newManager(t, time.Hour)
	mr.Close()

	_, err := m.CheckAndMarkProcessed(context.Background(), "order-email", uuid.New())
	assert.Error(t, err)
}
