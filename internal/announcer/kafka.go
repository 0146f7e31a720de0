package announcer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/x402-pay/internal/models"
	"github.com/akylbek/payment-system/x402-pay/internal/telemetry"
)

// SessionEventsTopic is the Kafka topic session events are written to.
const SessionEventsTopic = "payment.session.events"

const publishTimeout = 5 * time.Second

// MessageWriter is the part of *kafka.Writer the announcer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter returns a writer for SessionEventsTopic.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    SessionEventsTopic,
		Balancer: &kafka.LeastBytes{},
	}
}

// KafkaAnnouncer publishes events keyed by session id, so one session's
// events stay ordered within a partition.
type KafkaAnnouncer struct {
	writer MessageWriter
}

func NewKafkaAnnouncer(writer MessageWriter) *KafkaAnnouncer {
	return &KafkaAnnouncer{writer: writer}
}

func (a *KafkaAnnouncer) Announce(ctx context.Context, event models.SessionEvent) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		telemetry.Logger.Error("Error marshaling session event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = a.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionID),
		Value: eventJSON,
		Headers: []kafka.Header{
			{Key: "state", Value: []byte(event.State)},
		},
	})
	if err != nil {
		telemetry.Logger.Error("Failed to publish session event to Kafka",
			zap.String("session_id", event.SessionID),
			zap.String("state", string(event.State)),
			zap.Error(err),
		)
	}
}
