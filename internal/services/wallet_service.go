package service

import (
	"context"
	"strings"
	"time"

	"github.com/honeynil/invest-ledger/internal/infrastructure/observability"
	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type WalletService interface {
	GetBalance(ctx context.Context, p models.Principal) (*models.Wallet, error)
	// Credit funds a user's wallet from the back office.
	Credit(ctx context.Context, p models.Principal, userID int64, amount decimal.Decimal, description string) (*models.Transaction, error)
}

type walletService struct {
	store  repository.Store
	events *EventPublisher
	now    func() time.Time
}

func NewWalletService(store repository.Store, events *EventPublisher) *walletService {
	return &walletService{store: store, events: events, now: time.Now}
}

func (s *walletService) GetBalance(ctx context.Context, p models.Principal) (_ *models.Wallet, err error) {
	ctx, done := startOperation(ctx, "GetBalance", attribute.Int64("user_id", p.ID))
	defer func() { done(err) }()

	wallet, err := s.store.Repositories().Wallets.GetByUserID(ctx, p.ID)
	if err != nil {
		logOutcome(ctx, "failed to get wallet", err, "user_id", p.ID)
		return nil, err
	}
	return wallet, nil
}

func (s *walletService) Credit(ctx context.Context, p models.Principal, userID int64, amount decimal.Decimal, description string) (_ *models.Transaction, err error) {
	ctx, done := startOperation(ctx, "Credit", attribute.Int64("user_id", userID), attribute.String("amount", amount.String()))
	defer func() { done(err) }()

	if err = requireAdmin(ctx, p, "Credit"); err != nil {
		return nil, err
	}
	if err = models.ValidateAmount(amount); err != nil {
		logOutcome(ctx, "invalid credit amount", err, "user_id", userID, "amount", amount.String())
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = "Deposit"
	}

	var tx *models.Transaction
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		wallet, err := repos.Wallets.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := repos.Wallets.Credit(ctx, userID, amount); err != nil {
			return err
		}
		tx = &models.Transaction{
			UserID:      userID,
			Kind:        models.KindDeposit,
			Amount:      amount,
			Currency:    wallet.Currency,
			Description: description,
			Status:      models.StatusCompleted,
		}
		return repos.Transactions.Append(ctx, tx)
	})
	if err != nil {
		logOutcome(ctx, "failed to credit wallet", err, "user_id", userID, "admin_id", p.ID)
		return nil, err
	}

	observability.WithContext(ctx).Info("wallet credited",
		"user_id", userID,
		"admin_id", p.ID,
		"amount", amount.StringFixed(models.MoneyPlaces),
		"transaction_id", tx.ID)
	s.events.Publish(ctx, EventWalletCredited, userID, tx)
	return tx, nil
}
