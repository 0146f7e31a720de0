package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

func TestMemoryHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()

	entry := testEntry("tx-1", "1Payer", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, entry))

	got, err := repo.GetByTxID(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	_, err = repo.GetByTxID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, testEntry("old", "1Payer", base)))
	require.NoError(t, repo.Save(ctx, testEntry("new", "1Payer", base.Add(48*time.Hour))))
	require.NoError(t, repo.Save(ctx, testEntry("mid", "1Payer", base.Add(24*time.Hour))))
	require.NoError(t, repo.Save(ctx, testEntry("other", "1Someone", base)))

	entries, err := repo.ListByPayer(ctx, "1Payer")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "new", entries[0].Confirmation.TxID)
	assert.Equal(t, "mid", entries[1].Confirmation.TxID)
	assert.Equal(t, "old", entries[2].Confirmation.TxID)
}

func TestMemoryHistorySaveIsFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, testEntry("tx-1", "1Payer", at)))
	require.NoError(t, repo.Save(ctx, testEntry("tx-1", "1Other", at)))

	got, err := repo.GetByTxID(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "1Payer", got.Payer)
}

func TestMemoryRestoreStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRestoreStore()

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, state.Connected)

	require.NoError(t, store.Save(ctx, models.RestoreState{Connected: true, Address: "1Abc"}))
	state, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RestoreState{Connected: true, Address: "1Abc"}, state)

	require.NoError(t, store.Clear(ctx))
	state, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RestoreState{}, state)
}

func TestMemorySessionLock(t *testing.T) {
	ctx := context.Background()
	lock := NewMemorySessionLock()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	lock.clock = func() time.Time { return now }

	ok, err := lock.Acquire(ctx, "1Payer", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, "1Payer", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = lock.Acquire(ctx, "1Payer", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock is taken over")

	require.NoError(t, lock.Release(ctx, "1Payer"))
	ok, err = lock.Acquire(ctx, "1Payer", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
