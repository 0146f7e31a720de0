package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

// WalletProvider is the wallet backend, e.g. a browser extension or a
// simulator. It owns the ledger.
type WalletProvider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	Balance(ctx context.Context, address string) (int64, error)
	SignTransaction(ctx context.Context, address string, draft models.TransferDraft) (*models.TransferRecord, error)
	Disconnect(ctx context.Context) error
	Network() models.Network
}

// WalletSigner is what a payment session needs from the wallet.
type WalletSigner interface {
	Wallet() models.Wallet
	SignTransfer(ctx context.Context, draft models.TransferDraft) (*models.TransferRecord, error)
	Acquire(sessionID string) error
	Release(sessionID string)
}
