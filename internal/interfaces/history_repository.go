package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

// HistoryRepository defines the contract for settled payment history
type HistoryRepository interface {
	Save(ctx context.Context, entry *models.HistoryEntry) error
	GetByTxID(ctx context.Context, txID string) (*models.HistoryEntry, error)
	ListByPayer(ctx context.Context, payer string) ([]models.HistoryEntry, error)
}
