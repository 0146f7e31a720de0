package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

// RestoreStore keeps the last wallet connection across restarts
type RestoreStore interface {
	Save(ctx context.Context, state models.RestoreState) error
	// Load returns a zero RestoreState when nothing was saved.
	Load(ctx context.Context) (models.RestoreState, error)
	Clear(ctx context.Context) error
}
