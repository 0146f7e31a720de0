package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisRestoreStore(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	store := NewRedisRestoreStore(client, "default")

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RestoreState{}, state)

	want := models.RestoreState{Connected: true, Address: "1Abc"}
	require.NoError(t, store.Save(ctx, want))
	assert.True(t, mr.Exists("wallet_restore:default"))

	state, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, state)

	require.NoError(t, store.Clear(ctx))
	assert.False(t, mr.Exists("wallet_restore:default"))
	require.NoError(t, store.Clear(ctx))
}

func TestRedisRestoreStoreCorrupt(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	require.NoError(t, mr.Set("wallet_restore:default", "not json"))

	_, err := NewRedisRestoreStore(client, "default").Load(ctx)
	assert.Error(t, err)
}

func TestRedisSessionLock(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	lock := NewRedisSessionLock(client)

	ok, err := lock.Acquire(ctx, "1Payer", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, "1Payer", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(31 * time.Second)
	ok, err = lock.Acquire(ctx, "1Payer", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, lock.Release(ctx, "1Payer"))
	assert.False(t, mr.Exists("wallet_session_lock:1Payer"))
}

func TestRedisSessionLockKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	first := NewRedisSessionLock(client)
	second := NewRedisSessionLock(client)

	ok, err := first.Acquire(ctx, "1Payer", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)
	ok, err = second.Acquire(ctx, "1Payer", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, first.Release(ctx, "1Payer"))
	assert.True(t, mr.Exists("wallet_session_lock:1Payer"), "expired holder must not delete the new lock")

	ok, err = first.Acquire(ctx, "1Payer", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(ctx, "1Payer"))
	assert.False(t, mr.Exists("wallet_session_lock:1Payer"))
	require.NoError(t, second.Release(ctx, "1Payer"))
}
