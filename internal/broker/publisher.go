// internal/broker/publisher.go
package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/eventra/eventra-backend/internal/config"
)

const (
	EventOrderFinished = "order.finished"
	EventOrderCanceled = "order.canceled"
	EventTicketScanned = "ticket.scanned"
	EventDeliverySent  = "delivery.sent"
)

// Message is the envelope written to the topic. Payload carries the
// event-specific body.
type Message struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Publisher emits domain events after state changes commit. A nil Publisher
// is valid and drops every event, so callers never guard the call site.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher returns nil when no brokers are configured.
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	if !cfg.Enabled() {
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		ErrorLogger: kafka.LoggerFunc(func(format string, args ...interface{}) {
			logrus.Errorf("kafka: "+format, args...)
		}),
	}

	return &Publisher{writer: writer}
}

// Publish keys the message by entity id so per-entity ordering holds across
// partitions. Errors are logged, not returned: events are best effort and
// never roll back the state change they describe.
func (p *Publisher) Publish(ctx context.Context, eventType string, entityID uuid.UUID, payload interface{}) {
	if p == nil {
		return
	}

	body, err := json.Marshal(Message{
		Type:       eventType,
		OccurredAt: time.Now(),
		Payload:    payload,
	})
	if err != nil {
		logrus.WithError(err).WithField("event_type", eventType).Error("Failed to marshal domain event")
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entityID.String()),
		Value: body,
	})
	if err != nil {
		logrus.WithError(err).WithField("event_type", eventType).Error("Failed to publish domain event")
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
