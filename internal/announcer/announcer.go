// Package announcer delivers payment session events to whoever renders or
// forwards them: logs, Kafka, NATS or an in-memory recorder.
package announcer

import (
	"context"

	"github.com/akylbek/payment-system/x402-pay/internal/interfaces"
	"github.com/akylbek/payment-system/x402-pay/internal/models"
)

// Multi fans an event out to every announcer in order.
type Multi []interfaces.Announcer

func (m Multi) Announce(ctx context.Context, event models.SessionEvent) {
	for _, a := range m {
		if a != nil {
			a.Announce(ctx, event)
		}
	}
}

// Func adapts a function to interfaces.Announcer.
type Func func(ctx context.Context, event models.SessionEvent)

func (f Func) Announce(ctx context.Context, event models.SessionEvent) { f(ctx, event) }
