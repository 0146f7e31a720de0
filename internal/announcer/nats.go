package announcer

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
)

// SubjectPrefix is followed by the state name, e.g. payment.session.confirmed.
const SubjectPrefix = "payment.session."

// Publisher is the part of *nats.Conn the announcer uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type NATSAnnouncer struct {
	conn Publisher
}

func NewNATSAnnouncer(conn Publisher) *NATSAnnouncer {
	return &NATSAnnouncer{conn: conn}
}

func (a *NATSAnnouncer) Announce(_ context.Context, event models.SessionEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		telemetry.Logger.Error("Error marshaling session event", zap.Error(err))
		return
	}
	if err := a.conn.Publish(SubjectPrefix+string(event.State), data); err != nil {
		telemetry.Logger.Error("Failed to publish session event to NATS",
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
	}
}
