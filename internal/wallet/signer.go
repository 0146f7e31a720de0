// Package wallet holds the wallet connection and authorizes transfers
// against the provider ledger.
package wallet

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/x402-pay/internal/interfaces"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
)

// Signer is the wallet as seen by the payment core. It caches the
// connection state, keeps the restore state up to date and allows one
// in-flight payment session at a time.
type Signer struct {
	provider interfaces.WalletProvider
	store    interfaces.RestoreStore

	mu       sync.RWMutex
	wallet   models.Wallet
	inflight string

	connectMu sync.Mutex
}

// NewSigner creates a signer. provider may be nil, in which case Connect
// fails with ErrNoProvider. store may be nil to skip restore bookkeeping.
func NewSigner(provider interfaces.WalletProvider, store interfaces.RestoreStore) *Signer {
	s := &Signer{provider: provider, store: store}
	s.wallet = s.disconnected()
	return s
}

func (s *Signer) disconnected() models.Wallet {
	network := models.NetworkTestnet
	if s.provider != nil {
		network = s.provider.Network()
	}
	return models.Wallet{Network: network}
}

// Wallet returns a copy of the current wallet state.
func (s *Signer) Wallet() models.Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w := s.wallet
	if w.Balance != nil {
		b := *w.Balance
		w.Balance = &b
	}
	return w
}

// Connect asks the provider for an account and loads its balance. Calling
// it on a connected signer returns the current wallet unchanged.
func (s *Signer) Connect(ctx context.Context) (models.Wallet, error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if w := s.Wallet(); w.Connected {
		return w, nil
	}
	if s.provider == nil {
		return s.Wallet(), models.NewPaymentError(models.ErrCodeNoProvider,
			"No BSV wallet detected. Please install a BSV wallet extension.", nil)
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		telemetry.Logger.Error("Error connecting wallet", zap.Error(err))
		return s.Wallet(), err
	}
	if len(accounts) == 0 {
		return s.Wallet(), models.NewPaymentError(models.ErrCodeNoProvider, "Could not access the wallet.", nil)
	}
	address := accounts[0]

	balance, err := s.provider.Balance(ctx, address)
	if err != nil {
		telemetry.Logger.Error("Error reading wallet balance", zap.Error(err))
		return s.Wallet(), err
	}

	s.mu.Lock()
	s.wallet = models.Wallet{
		Connected: true,
		Address:   address,
		Balance:   &balance,
		Network:   s.provider.Network(),
	}
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(ctx, models.RestoreState{Connected: true, Address: address}); err != nil {
			telemetry.Logger.Warn("Failed to save wallet restore state", zap.Error(err))
		}
	}

	telemetry.Logger.Info("Wallet connected",
		zap.String("address", address),
		zap.Int64("balance", balance),
	)
	return s.Wallet(), nil
}

// Disconnect resets the wallet and forgets the restore state. It is
// idempotent.
func (s *Signer) Disconnect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	wasConnected := s.wallet.Connected
	s.wallet = s.disconnected()
	s.mu.Unlock()

	if wasConnected {
		if err := s.provider.Disconnect(ctx); err != nil {
			telemetry.Logger.Warn("Provider disconnect failed", zap.Error(err))
		}
		telemetry.Logger.Info("Wallet disconnected")
	}
	if s.store != nil {
		return s.store.Clear(ctx)
	}
	return nil
}

// Restore reconnects when the restore store says a wallet was connected
// before. Failures leave the wallet disconnected and are only logged.
func (s *Signer) Restore(ctx context.Context) models.Wallet {
	if s.store == nil {
		return s.Wallet()
	}
	state, err := s.store.Load(ctx)
	if err != nil {
		telemetry.Logger.Warn("Failed to load wallet restore state", zap.Error(err))
		return s.Wallet()
	}
	if !state.Connected {
		return s.Wallet()
	}
	w, err := s.Connect(ctx)
	if err != nil {
		telemetry.Logger.Warn("Wallet restore failed", zap.Error(err))
	}
	return w
}

// Balance refreshes the balance from the provider.
func (s *Signer) Balance(ctx context.Context) (int64, error) {
	w := s.Wallet()
	if !w.Connected {
		return 0, models.NewPaymentError(models.ErrCodeNotConnected, "Wallet not connected", nil)
	}

	balance, err := s.provider.Balance(ctx, w.Address)
	if err != nil {
		return 0, err
	}
	s.setBalance(w.Address, balance)
	return balance, nil
}

// SignTransfer asks the provider to sign draft and debit the ledger. A
// session must hold the wallet through Acquire.
func (s *Signer) SignTransfer(ctx context.Context, draft models.TransferDraft) (*models.TransferRecord, error) {
	s.mu.RLock()
	held := s.inflight != ""
	s.mu.RUnlock()

	w := s.Wallet()
	if !w.Connected {
		return nil, models.NewPaymentError(models.ErrCodeNotConnected, "Wallet not connected", nil)
	}
	if !held {
		return nil, models.ErrNoSession
	}

	record, err := s.provider.SignTransaction(ctx, w.Address, draft)
	if err != nil {
		telemetry.Logger.Warn("Error signing transaction", zap.Error(err))
		return nil, err
	}

	if balance, err := s.provider.Balance(ctx, w.Address); err == nil {
		s.setBalance(w.Address, balance)
	} else {
		telemetry.Logger.Warn("Failed to refresh balance after signing", zap.Error(err))
	}

	telemetry.Logger.Info("Transfer signed",
		zap.String("txid", record.TxID),
		zap.Int64("total_output", record.TotalOutput()),
		zap.Int64("fee", record.Fee),
	)
	return record, nil
}

func (s *Signer) setBalance(address string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wallet.Connected && s.wallet.Address == address {
		s.wallet.Balance = &balance
	}
}

// Acquire marks sessionID as the wallet's in-flight session.
func (s *Signer) Acquire(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != "" && s.inflight != sessionID {
		return models.ErrSessionInProgress
	}
	s.inflight = sessionID
	return nil
}

// Release clears the in-flight mark if sessionID holds it.
func (s *Signer) Release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == sessionID {
		s.inflight = ""
	}
}
