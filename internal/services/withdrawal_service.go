package service

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/honeynil/invest-ledger/internal/infrastructure/observability"
	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const withdrawalRefPrefix = "WD-"

type WithdrawalService interface {
	// Withdraw debits immediately and logs a pending withdrawal for the back office.
	Withdraw(ctx context.Context, p models.Principal, amount decimal.Decimal, method string) (*models.Transaction, error)
	// Settle finalizes a pending withdrawal. A failed withdrawal is refunded.
	Settle(ctx context.Context, transactionID int64, status models.TransactionStatus) error
}

type withdrawalService struct {
	store  repository.Store
	events *EventPublisher
	now    func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

func NewWithdrawalService(store repository.Store, events *EventPublisher) *withdrawalService {
	return &withdrawalService{
		store:   store,
		events:  events,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// reference is time-sortable and unique within the process even for
// requests in the same millisecond.
func (s *withdrawalService) reference() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(s.now()), s.entropy)
	if err != nil {
		return "", err
	}
	return withdrawalRefPrefix + id.String(), nil
}

func (s *withdrawalService) Withdraw(ctx context.Context, p models.Principal, amount decimal.Decimal, method string) (_ *models.Transaction, err error) {
	ctx, done := startOperation(ctx, "Withdraw", attribute.Int64("user_id", p.ID), attribute.String("amount", amount.String()))
	defer func() { done(err) }()

	if err = models.ValidateAmount(amount); err != nil {
		logOutcome(ctx, "invalid withdrawal amount", err, "user_id", p.ID, "amount", amount.String())
		return nil, err
	}
	method = strings.TrimSpace(method)
	if method == "" {
		observability.WithContext(ctx).Warn("withdrawal method missing", "user_id", p.ID)
		return nil, pkgerrors.ErrInvalidInput
	}

	ref, err := s.reference()
	if err != nil {
		observability.WithContext(ctx).Error("failed to generate withdrawal reference", "user_id", p.ID, "error", err)
		return nil, pkgerrors.ErrInternal
	}

	var tx *models.Transaction
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		wallet, err := repos.Wallets.GetByUserID(ctx, p.ID)
		if err != nil {
			return err
		}
		if _, err := repos.Wallets.Debit(ctx, p.ID, amount); err != nil {
			return err
		}
		tx = &models.Transaction{
			UserID:      p.ID,
			Kind:        models.KindWithdraw,
			Amount:      amount,
			Currency:    wallet.Currency,
			Description: "Withdrawal via " + method,
			Reference:   ref,
			Status:      models.StatusPending,
		}
		return repos.Transactions.Append(ctx, tx)
	})
	if err != nil {
		logOutcome(ctx, "withdrawal rejected", err, "user_id", p.ID, "amount", amount.String())
		return nil, err
	}

	observability.WithContext(ctx).Info("withdrawal requested",
		"user_id", p.ID,
		"transaction_id", tx.ID,
		"reference", ref,
		"amount", amount.StringFixed(models.MoneyPlaces))
	s.events.Publish(ctx, EventTransactionAppended, p.ID, tx)
	return tx, nil
}

func (s *withdrawalService) Settle(ctx context.Context, transactionID int64, status models.TransactionStatus) (err error) {
	ctx, done := startOperation(ctx, "SettleWithdrawal", attribute.Int64("transaction_id", transactionID), attribute.String("status", string(status)))
	defer func() { done(err) }()

	var (
		withdrawal *models.Transaction
		refund     *models.Transaction
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		withdrawal, err = repos.Transactions.GetByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if withdrawal.Kind != models.KindWithdraw {
			return pkgerrors.ErrTransactionNotFound
		}
		if err := repos.Transactions.SettleWithdrawal(ctx, transactionID, status); err != nil {
			return err
		}
		withdrawal.Status = status
		if status != models.StatusFailed {
			return nil
		}

		// деньги возвращаются на кошелёк отдельной записью
		if _, err := repos.Wallets.Credit(ctx, withdrawal.UserID, withdrawal.Amount); err != nil {
			return err
		}
		refund = &models.Transaction{
			UserID:      withdrawal.UserID,
			Kind:        models.KindDeposit,
			Amount:      withdrawal.Amount,
			Currency:    withdrawal.Currency,
			Description: "Refund of failed withdrawal " + withdrawal.Reference,
			Status:      models.StatusCompleted,
		}
		return repos.Transactions.Append(ctx, refund)
	})
	if err != nil {
		logOutcome(ctx, "failed to settle withdrawal", err, "transaction_id", transactionID, "status", status)
		return err
	}

	observability.WithContext(ctx).Info("withdrawal settled",
		"transaction_id", transactionID,
		"user_id", withdrawal.UserID,
		"status", status,
		"refunded", refund != nil)
	if refund != nil {
		s.events.Publish(ctx, EventTransactionAppended, withdrawal.UserID, refund)
	}
	return nil
}
