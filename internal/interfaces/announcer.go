package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

// Announcer renders or forwards session lifecycle events. Implementations
// must not block the payment flow for long.
type Announcer interface {
	Announce(ctx context.Context, event models.SessionEvent)
}
