package announcer

import (
	"context"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
)

// LogAnnouncer writes each event as a structured log line.
type LogAnnouncer struct {
	logger *zap.Logger
}

// NewLogAnnouncer logs to logger, or to telemetry.Logger when nil.
func NewLogAnnouncer(logger *zap.Logger) *LogAnnouncer {
	return &LogAnnouncer{logger: logger}
}

func (a *LogAnnouncer) Announce(_ context.Context, event models.SessionEvent) {
	logger := a.logger
	if logger == nil {
		logger = telemetry.Logger
	}

	fields := []zap.Field{
		zap.String("session_id", event.SessionID),
		zap.String("from_state", string(event.PreviousState)),
		zap.String("to_state", string(event.State)),
		zap.String("phrase", event.Phrase),
		zap.String("locale", string(event.Locale)),
	}
	if event.ServiceID != "" {
		fields = append(fields, zap.String("service_id", event.ServiceID))
	}
	if event.TxID != "" {
		fields = append(fields, zap.String("txid", event.TxID))
	}
	if event.Accessibility != nil {
		fields = append(fields, zap.String("plain_language", event.Accessibility.PlainLanguage))
	}

	if event.State == models.StateFailed {
		logger.Warn("Payment announcement", append(fields, zap.String("error", event.Error))...)
		return
	}
	logger.Info("Payment announcement", fields...)
}
