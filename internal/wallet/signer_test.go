package wallet

import (
	"context"
	"math/rand"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/x402-pay/internal/fault"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
	"github.com/akylbek/payment-system/x402-pay/internal/repository"
)

func newTestSigner(t *testing.T, opts ...ProviderOption) (*Signer, *repository.MemoryRestoreStore) {
	t.Helper()
	store := repository.NewMemoryRestoreStore()
	opts = append([]ProviderOption{WithRand(rand.New(rand.NewSource(7)))}, opts...)
	return NewSigner(NewMockProvider(opts...), store), store
}

func paymentDraft(amount int64, destination string) models.TransferDraft {
	return models.TransferDraft{
		Outputs: []models.TransferOutput{{Satoshis: amount, Script: destination}},
		Fee:     50,
	}
}

func TestConnectWithoutProvider(t *testing.T) {
	s := NewSigner(nil, nil)

	w, err := s.Connect(context.Background())
	require.ErrorIs(t, err, models.ErrNoProvider)
	assert.False(t, w.Connected)
	assert.Equal(t, models.NetworkTestnet, w.Network)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSigner(t)

	w, err := s.Connect(ctx)
	require.NoError(t, err)
	assert.True(t, w.Connected)
	require.NotNil(t, w.Balance)
	assert.GreaterOrEqual(t, *w.Balance, int64(minSeedBalance))
	assert.Less(t, *w.Balance, int64(minSeedBalance+seedBalanceSpan))

	payload, version, err := base58.CheckDecode(w.Address)
	require.NoError(t, err)
	assert.Equal(t, byte(0x6f), version)
	assert.Len(t, payload, 20)

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RestoreState{Connected: true, Address: w.Address}, state)

	again, err := s.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, w, again, "connect is idempotent")
}

func TestMainnetAddress(t *testing.T) {
	s, _ := newTestSigner(t, WithNetwork(models.NetworkMainnet))

	w, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.NetworkMainnet, w.Network)
	assert.Equal(t, byte('1'), w.Address[0])
}

func TestBalanceRequiresConnection(t *testing.T) {
	s, _ := newTestSigner(t)

	_, err := s.Balance(context.Background())
	assert.ErrorIs(t, err, models.ErrNotConnected)

	_, err = s.SignTransfer(context.Background(), paymentDraft(1, "dest"))
	assert.ErrorIs(t, err, models.ErrNotConnected)
}

func TestSignTransferDebitsBalance(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSigner(t, WithSeedBalance(1000000))
	_, err := s.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Acquire("session-1"))

	record, err := s.SignTransfer(ctx, paymentDraft(50000, "1Dest"))
	require.NoError(t, err)

	assert.Len(t, record.TxID, 64)
	assert.Equal(t, "01000000", record.RawTx[:8])
	assert.Equal(t, int64(50), record.Fee)
	assert.Equal(t, int64(50000), record.TotalOutput())
	require.Len(t, record.Inputs, 1)
	assert.Equal(t, int64(1000000), record.Inputs[0].Satoshis, "default input covers the full balance")

	balance, err := s.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(949950), balance)
	assert.Equal(t, int64(949950), *s.Wallet().Balance)
}

func TestSignTransferUsesDefaultFee(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSigner(t, WithSeedBalance(1000))
	_, err := s.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Acquire("session-1"))

	record, err := s.SignTransfer(ctx, models.TransferDraft{})
	require.NoError(t, err)
	assert.Equal(t, DefaultFee, record.Fee)
	assert.Empty(t, record.Outputs)
	assert.Equal(t, int64(950), *s.Wallet().Balance)
}

func TestSignTransferRejected(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSigner(t, WithSeedBalance(1000000), WithRejectPolicy(fault.Always))
	_, err := s.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Acquire("session-1"))

	_, err = s.SignTransfer(ctx, paymentDraft(50000, "1Dest"))
	require.ErrorIs(t, err, models.ErrUserRejected)
	assert.Equal(t, "User rejected transaction", err.Error())
	assert.Equal(t, int64(1000000), *s.Wallet().Balance)
}

func TestSignTransferInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSigner(t, WithSeedBalance(10000))
	_, err := s.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Acquire("session-1"))

	_, err = s.SignTransfer(ctx, paymentDraft(9960, "1Dest"))
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	balance, err := s.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), balance)

	_, err = s.SignTransfer(ctx, paymentDraft(9950, "1Dest"))
	require.NoError(t, err)
	balance, err = s.Balance(ctx)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestBalanceNeverNegative(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(99))
	s, _ := newTestSigner(t, WithSeedBalance(500000))
	_, err := s.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Acquire("session-1"))

	for i := 0; i < 200; i++ {
		before := *s.Wallet().Balance
		amount := rng.Int63n(60000)

		record, err := s.SignTransfer(ctx, paymentDraft(amount, "1Dest"))
		after := *s.Wallet().Balance
		require.GreaterOrEqual(t, after, int64(0))

		if err != nil {
			require.ErrorIs(t, err, models.ErrInsufficientFunds)
			assert.Equal(t, before, after)
			continue
		}
		assert.Equal(t, before-(record.TotalOutput()+record.Fee), after)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSigner(t)
	_, err := s.Connect(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Disconnect(ctx))
	once := s.Wallet()
	require.NoError(t, s.Disconnect(ctx))
	assert.Equal(t, once, s.Wallet())
	assert.Equal(t, models.Wallet{Network: models.NetworkTestnet}, once)

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, state.Connected)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryRestoreStore()
	require.NoError(t, store.Save(ctx, models.RestoreState{Connected: true, Address: "1Old"}))

	s := NewSigner(NewMockProvider(), store)
	w := s.Restore(ctx)
	assert.True(t, w.Connected)

	broken := NewSigner(nil, store)
	w = broken.Restore(ctx)
	assert.False(t, w.Connected, "restore failure is not fatal")
}

func TestRestoreWithoutSavedState(t *testing.T) {
	s, _ := newTestSigner(t)
	assert.False(t, s.Restore(context.Background()).Connected)
}

func TestAcquireRelease(t *testing.T) {
	s, _ := newTestSigner(t)

	require.NoError(t, s.Acquire("a"))
	require.NoError(t, s.Acquire("a"))
	assert.ErrorIs(t, s.Acquire("b"), models.ErrSessionInProgress)

	s.Release("b")
	assert.ErrorIs(t, s.Acquire("b"), models.ErrSessionInProgress)

	s.Release("a")
	assert.NoError(t, s.Acquire("b"))
}

func TestSignTransferRequiresSession(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSigner(t, WithSeedBalance(100000))
	_, err := s.Connect(ctx)
	require.NoError(t, err)

	_, err = s.SignTransfer(ctx, paymentDraft(5000, "1Dest"))
	require.ErrorIs(t, err, models.ErrNoSession)
	assert.Equal(t, int64(100000), *s.Wallet().Balance)

	require.NoError(t, s.Acquire("session-1"))
	_, err = s.SignTransfer(ctx, paymentDraft(5000, "1Dest"))
	require.NoError(t, err)

	s.Release("session-1")
	_, err = s.SignTransfer(ctx, paymentDraft(5000, "1Dest"))
	assert.ErrorIs(t, err, models.ErrNoSession)
	assert.Equal(t, int64(94950), *s.Wallet().Balance)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, _ := newTestSigner(t)

	_, err := s.Connect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.Wallet().Connected)
}

func TestDisconnectClosesLedger(t *testing.T) {
	ctx := context.Background()
	provider := NewMockProvider(WithSeedBalance(1000))
	s := NewSigner(provider, nil)
	w, err := s.Connect(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Disconnect(ctx))
	_, err = provider.Balance(ctx, w.Address)
	assert.ErrorIs(t, err, models.ErrNotConnected)
}
