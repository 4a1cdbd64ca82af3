package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/invest-ledger/internal/models"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/segmentio/kafka-go"
)

const (
	EventWithdrawalSettled = "withdrawal.settled"
	EventInvestmentClosed  = "investment.closed"
)

// SettlementHandler applies back-office decisions to the ledger.
type SettlementHandler interface {
	SettleWithdrawal(ctx context.Context, transactionID int64, status models.TransactionStatus) error
	CloseInvestment(ctx context.Context, investmentID int64, status models.InvestmentStatus) error
}

type settlementEvent struct {
	Type          string `json:"type"`
	TransactionID int64  `json:"transaction_id,omitempty"`
	InvestmentID  int64  `json:"investment_id,omitempty"`
	Status        string `json:"status"`
}

// messageReader is the part of *kafka.Reader the consumer needs. Offsets are
// committed explicitly, after the event has been applied.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader     messageReader
	topic      string
	handler    SettlementHandler
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, handler SettlementHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	return newConsumer(reader, topic, handler)
}

func newConsumer(reader messageReader, topic string, handler SettlementHandler) *Consumer {
	return &Consumer{
		reader:     reader,
		topic:      topic,
		handler:    handler,
		backoff:    500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Consume reads until ctx is cancelled. A message is committed once it is
// applied or rejected by a business rule. Storage faults are retried with
// backoff and the offset stays uncommitted, so the event is redelivered
// after a restart.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Kafka consumer stopped", "topic", c.topic)
				return
			}
			slog.Error("failed to fetch Kafka message", "topic", c.topic, "error", err)
			if !sleep(ctx, c.backoff) {
				slog.Info("Kafka consumer stopped", "topic", c.topic)
				return
			}
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key), "offset", msg.Offset)
		if !c.apply(ctx, msg) {
			slog.Info("Kafka consumer stopped", "topic", c.topic, "uncommitted_offset", msg.Offset)
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			// не закоммитили: событие придёт ещё раз, обработчики идемпотентны
			slog.Error("failed to commit Kafka message", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
	}
}

// apply retries msg until it succeeds or fails with a business error.
// It returns false if ctx is cancelled first.
func (c *Consumer) apply(ctx context.Context, msg kafka.Message) bool {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := HandleMessage(ctx, c.handler, msg.Value)
		if err == nil {
			return true
		}
		if pkgerrors.IsBusiness(err) {
			slog.Warn("settlement event rejected, skipping", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			return true
		}

		slog.Error("failed to handle settlement event, retrying",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"attempt", attempt,
			"retry_in", wait,
			"error", err)
		if !sleep(ctx, wait) {
			return false
		}
		wait = min(wait*2, c.maxBackoff)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// HandleMessage decodes one back-office event and dispatches it.
func HandleMessage(ctx context.Context, handler SettlementHandler, value []byte) error {
	var event settlementEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("%w: malformed settlement event: %v", pkgerrors.ErrInvalidInput, err)
	}

	switch event.Type {
	case EventWithdrawalSettled:
		status := models.TransactionStatus(event.Status)
		if event.TransactionID <= 0 || !models.StatusPending.CanSettleTo(status) {
			return fmt.Errorf("%w: withdrawal.settled needs transaction_id and status completed|failed", pkgerrors.ErrInvalidInput)
		}
		err := handler.SettleWithdrawal(ctx, event.TransactionID, status)
		if stderrors.Is(err, pkgerrors.ErrInvalidTransition) {
			// повторная доставка уже применённого события
			slog.Warn("withdrawal already settled", "transaction_id", event.TransactionID, "status", status)
			return nil
		}
		return err

	case EventInvestmentClosed:
		status := models.InvestmentStatus(event.Status)
		if event.InvestmentID <= 0 || !status.Terminal() {
			return fmt.Errorf("%w: investment.closed needs investment_id and status completed|cancelled", pkgerrors.ErrInvalidInput)
		}
		err := handler.CloseInvestment(ctx, event.InvestmentID, status)
		if stderrors.Is(err, pkgerrors.ErrInvalidTransition) {
			slog.Warn("investment already closed", "investment_id", event.InvestmentID, "status", status)
			return nil
		}
		return err

	default:
		return fmt.Errorf("%w: unknown event type %q", pkgerrors.ErrInvalidInput, event.Type)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
