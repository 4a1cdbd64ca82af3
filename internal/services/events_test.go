package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	kafkamocks "github.com/honeynil/invest-ledger/internal/infrastructure/kafka/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPublisher_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("envelope keyed by user", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		producer := kafkamocks.NewMockKafkaProducer(ctrl)
		pub := NewEventPublisher(producer, "ledger-events")
		pub.now = fixedNow

		var sent []byte
		producer.EXPECT().Send(gomock.Any(), "ledger-events", int64(42), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _ int64, value []byte) error {
				sent = value
				return nil
			})

		pub.Publish(ctx, EventWalletCredited, 42, map[string]string{"amount": "10.00"})

		var got struct {
			Type       string            `json:"type"`
			UserID     int64             `json:"user_id"`
			OccurredAt string            `json:"occurred_at"`
			Data       map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(sent, &got))
		assert.Equal(t, EventWalletCredited, got.Type)
		assert.Equal(t, int64(42), got.UserID)
		assert.Equal(t, "2025-01-31T15:04:05Z", got.OccurredAt)
		assert.Equal(t, "10.00", got.Data["amount"])
	})

	t.Run("send failure is swallowed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		producer := kafkamocks.NewMockKafkaProducer(ctrl)
		pub := NewEventPublisher(producer, "ledger-events")
		producer.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		assert.NotPanics(t, func() { pub.Publish(ctx, EventKYCReviewed, 1, nil) })
	})

	t.Run("nil publisher drops events", func(t *testing.T) {
		var pub *EventPublisher
		assert.NotPanics(t, func() { pub.Publish(ctx, EventKYCReviewed, 1, nil) })
	})
}

func TestInvestmentService_PublishesAfterCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plan := createPlan(t, f, "Gold", 3, "100", "")
	p := f.user(t, "alice", "500")

	ctrl := gomock.NewController(t)
	producer := kafkamocks.NewMockKafkaProducer(ctrl)
	f.investments.events = NewEventPublisher(producer, "ledger-events")

	var types []string
	producer.EXPECT().Send(gomock.Any(), "ledger-events", p.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ int64, value []byte) error {
			var env struct {
				Type string `json:"type"`
			}
			require.NoError(t, json.Unmarshal(value, &env))
			types = append(types, env.Type)
			return nil
		}).Times(2)

	_, err := f.investments.Invest(ctx, p, plan.ID, dec("200"))
	require.NoError(t, err)
	assert.Equal(t, []string{EventInvestmentOpened, EventTransactionAppended}, types)

	// rejected operations emit nothing
	_, err = f.investments.Invest(ctx, p, plan.ID, dec("1000"))
	assert.Error(t, err)
}
