package service

import (
	"context"
	"time"

	"github.com/honeynil/invest-ledger/internal/infrastructure/observability"
	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type CopyRequest struct {
	MasterID          int64
	Amount            decimal.Decimal
	AllocationPercent int
	AutoCopy          bool
	CopyOpenPositions bool
}

type CopyTradingService interface {
	// Copy always opens a new relationship, even when one with the same master is active.
	Copy(ctx context.Context, p models.Principal, req CopyRequest) (*models.CopyRelationship, error)
	List(ctx context.Context, p models.Principal) ([]models.CopyRelationship, error)
}

type copyTradingService struct {
	store  repository.Store
	events *EventPublisher
	now    func() time.Time
}

func NewCopyTradingService(store repository.Store, events *EventPublisher) *copyTradingService {
	return &copyTradingService{store: store, events: events, now: time.Now}
}

func (s *copyTradingService) Copy(ctx context.Context, p models.Principal, req CopyRequest) (_ *models.CopyRelationship, err error) {
	ctx, done := startOperation(ctx, "Copy",
		attribute.Int64("copier_id", p.ID),
		attribute.Int64("master_id", req.MasterID),
		attribute.String("amount", req.Amount.String()))
	defer func() { done(err) }()

	var (
		rel *models.CopyRelationship
		tx  *models.Transaction
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		master, err := repos.Traders.GetByID(ctx, req.MasterID)
		if err != nil {
			return err
		}
		// профиль мастера проверяется раньше суммы
		if err := models.ValidateAmount(req.Amount); err != nil {
			return err
		}
		if !models.ValidAllocationPercent(req.AllocationPercent) {
			observability.WithContext(ctx).Warn("allocation percent out of range", "copier_id", p.ID, "allocation_percent", req.AllocationPercent)
			return pkgerrors.ErrInvalidInput
		}
		if req.Amount.LessThan(master.MinCopyAmount) {
			return pkgerrors.ErrBelowMinimum
		}

		wallet, err := repos.Wallets.GetByUserID(ctx, p.ID)
		if err != nil {
			return err
		}
		if _, err := repos.Wallets.Debit(ctx, p.ID, req.Amount); err != nil {
			return err
		}

		rel = &models.CopyRelationship{
			CopierID:          p.ID,
			MasterID:          master.ID,
			Amount:            req.Amount,
			AllocationPercent: req.AllocationPercent,
			AutoCopy:          req.AutoCopy,
			CopyOpenPositions: req.CopyOpenPositions,
			StartDate:         models.CalendarDate(s.now()),
			Status:            models.CopyActive,
		}
		if err := repos.Copies.Create(ctx, rel); err != nil {
			return err
		}

		tx = &models.Transaction{
			UserID:      p.ID,
			Kind:        models.KindBuy,
			Amount:      req.Amount,
			Currency:    wallet.Currency,
			Description: "Copy trading: " + master.DisplayName,
			Status:      models.StatusCompleted,
		}
		return repos.Transactions.Append(ctx, tx)
	})
	if err != nil {
		logOutcome(ctx, "copy rejected", err, "copier_id", p.ID, "master_id", req.MasterID, "amount", req.Amount.String())
		return nil, err
	}

	observability.WithContext(ctx).Info("copy relationship opened",
		"copier_id", p.ID,
		"master_id", req.MasterID,
		"relationship_id", rel.ID,
		"amount", req.Amount.StringFixed(models.MoneyPlaces))
	s.events.Publish(ctx, EventCopyOpened, p.ID, rel)
	s.events.Publish(ctx, EventTransactionAppended, p.ID, tx)
	return rel, nil
}

func (s *copyTradingService) List(ctx context.Context, p models.Principal) (_ []models.CopyRelationship, err error) {
	ctx, done := startOperation(ctx, "ListCopyRelationships", attribute.Int64("copier_id", p.ID))
	defer func() { done(err) }()

	rels, err := s.store.Repositories().Copies.ListByCopier(ctx, p.ID)
	if err != nil {
		logOutcome(ctx, "failed to list copy relationships", err, "copier_id", p.ID)
		return nil, err
	}
	return rels, nil
}
