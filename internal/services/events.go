package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/honeynil/invest-ledger/internal/infrastructure/kafka"
	"github.com/honeynil/invest-ledger/internal/infrastructure/observability"
)

const (
	EventTransactionAppended = "transaction.appended"
	EventInvestmentOpened    = "investment.opened"
	EventCopyOpened          = "copy.opened"
	EventKYCReviewed         = "kyc.reviewed"
	EventWalletCredited      = "wallet.credited"
)

type event struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// EventPublisher emits ledger events after a unit of work has committed.
// A nil publisher or producer drops events.
type EventPublisher struct {
	producer kafka.KafkaProducer
	topic    string
	now      func() time.Time
}

func NewEventPublisher(producer kafka.KafkaProducer, topic string) *EventPublisher {
	return &EventPublisher{producer: producer, topic: topic, now: time.Now}
}

// Publish never fails the caller: the ledger change is already durable.
func (p *EventPublisher) Publish(ctx context.Context, eventType string, userID int64, data any) {
	if p == nil || p.producer == nil {
		return
	}
	logger := observability.WithContext(ctx, "event_type", eventType, "user_id", userID)

	value, err := json.Marshal(event{Type: eventType, UserID: userID, OccurredAt: p.now().UTC(), Data: data})
	if err != nil {
		logger.Error("failed to marshal kafka event", "error", err)
		return
	}
	if err := p.producer.Send(ctx, p.topic, userID, value); err != nil {
		logger.Error("failed to publish kafka event", "topic", p.topic, "error", err)
		return
	}
	logger.Debug("kafka event published", "topic", p.topic)
}
