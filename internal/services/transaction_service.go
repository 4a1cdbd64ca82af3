package service

import (
	"context"

	"github.com/honeynil/invest-ledger/internal/infrastructure/observability"
	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

type TransactionService interface {
	// List returns the caller's log, most recent first. An empty kind lists everything.
	List(ctx context.Context, p models.Principal, kind string) ([]models.Transaction, error)
}

type transactionService struct {
	store repository.Store
}

func NewTransactionService(store repository.Store) *transactionService {
	return &transactionService{store: store}
}

func (s *transactionService) List(ctx context.Context, p models.Principal, kind string) (_ []models.Transaction, err error) {
	ctx, done := startOperation(ctx, "ListTransactions", attribute.Int64("user_id", p.ID), attribute.String("kind", kind))
	defer func() { done(err) }()

	var filter *models.TransactionKind
	if kind != "" {
		k := models.TransactionKind(kind)
		if !k.Valid() {
			observability.WithContext(ctx).Warn("unknown transaction kind filter", "user_id", p.ID, "kind", kind)
			return nil, pkgerrors.ErrInvalidInput
		}
		filter = &k
	}

	txs, err := s.store.Repositories().Transactions.ListByUser(ctx, p.ID, filter)
	if err != nil {
		logOutcome(ctx, "failed to list transactions", err, "user_id", p.ID)
		return nil, err
	}
	observability.WithContext(ctx).Info("transaction history retrieved", "user_id", p.ID, "count", len(txs))
	return txs, nil
}
