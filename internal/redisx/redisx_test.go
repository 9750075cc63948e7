package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestClaimKeys_Lifecycle(t *testing.T) {
	_, rdb := newTestRedis(t)
	keys := &ClaimKeys{R: rdb}
	ctx := context.Background()

	id, reserved, err := keys.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Empty(t, id)

	_, reserved, err = keys.Reserve(ctx, "k1")
	assert.ErrorIs(t, err, ErrInFlight)
	assert.False(t, reserved)

	require.NoError(t, keys.Resolve(ctx, "k1", "booking-1"))
	id, reserved, err = keys.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, "booking-1", id)

	require.NoError(t, keys.Forget(ctx, "k1"))
	_, reserved, err = keys.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestClaimKeys_Expiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	keys := &ClaimKeys{R: rdb, TTL: time.Minute}
	ctx := context.Background()

	_, _, err := keys.Reserve(ctx, "k2")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, reserved, err := keys.Reserve(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestDedup(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	first, err := Dedup(ctx, rdb, "settlement", "ev-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := Dedup(ctx, rdb, "settlement", "ev-1")
	require.NoError(t, err)
	assert.False(t, again)
}

func TestJSONCache(t *testing.T) {
	_, rdb := newTestRedis(t)
	c := &JSONCache{R: rdb}
	ctx := context.Background()

	var out map[string]int
	hit, err := c.Get(ctx, "missing", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k", map[string]int{"stock": 3}, time.Minute))
	hit, err = c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, out["stock"])

	require.NoError(t, c.Delete(ctx, "k"))
	hit, _ = c.Get(ctx, "k", &out)
	assert.False(t, hit)
}
