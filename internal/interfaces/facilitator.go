package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

// Facilitator runs the challenge/response exchange and settlement
type Facilitator interface {
	SetLocale(locale models.Locale)
	SetDetailLevel(level models.DetailLevel)
	RequestResource(ctx context.Context, path string) (*models.Challenge, error)
	SubmitPayment(ctx context.Context, req *models.PaymentRequest, transfer *models.TransferRecord) (*models.PaymentConfirmation, error)
	CheckStatus(ctx context.Context, txID string) (*models.TransferStatus, error)
	GetHistory(ctx context.Context, address string) ([]models.PaymentConfirmation, error)
	AccessResource(ctx context.Context, path, proof string) (any, error)
}
