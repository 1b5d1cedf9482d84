package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/claw-quants/internal/cache"
	"github.com/irfndi/claw-quants/internal/testutil"
)

func TestGuardedSnapshotCache_PassesThrough(t *testing.T) {
	store := cache.NewInMemorySnapshotCache(quietLogger())
	guarded := NewGuardedSnapshotCache(store, CircuitBreakerConfig{}, quietLogger())
	ctx := context.Background()

	require.NoError(t, guarded.Set(ctx, "a", []byte("x")))
	data, ok := guarded.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("x"), data)
	assert.Equal(t, "memory", guarded.Backend())
	assert.Equal(t, "snapshot_store_memory", guarded.Breaker().name)
}

func TestGuardedSnapshotCache_OpensOnRedisFailure(t *testing.T) {
	client, mr := testutil.NewMiniRedis(t)
	store := cache.NewRedisSnapshotCache(client, quietLogger())
	guarded := NewGuardedSnapshotCache(store, CircuitBreakerConfig{FailureThreshold: 2}, quietLogger())
	ctx := context.Background()

	require.NoError(t, guarded.Set(ctx, "a", []byte("x")))

	mr.SetError("ERR store down")
	assert.Error(t, guarded.Set(ctx, "a", []byte("y")))
	assert.Error(t, guarded.Set(ctx, "a", []byte("y")))
	require.Equal(t, Open, guarded.Breaker().GetState())

	mr.SetError("")
	assert.ErrorIs(t, guarded.Set(ctx, "a", []byte("z")), ErrCircuitOpen)
	_, ok := guarded.Get(ctx, "a")
	assert.False(t, ok)

	guarded.Breaker().Reset()
	data, ok := guarded.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("x"), data)
}
