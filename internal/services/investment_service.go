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

type InvestmentService interface {
	Invest(ctx context.Context, p models.Principal, planID int64, amount decimal.Decimal) (*models.OngoingInvestment, error)
	Get(ctx context.Context, p models.Principal, id int64) (*models.OngoingInvestment, error)
	List(ctx context.Context, p models.Principal) ([]models.OngoingInvestment, error)
	// Close is driven by the back office when an investment matures or is cancelled.
	Close(ctx context.Context, id int64, status models.InvestmentStatus) (*models.OngoingInvestment, error)
}

type investmentService struct {
	store  repository.Store
	events *EventPublisher
	now    func() time.Time
}

func NewInvestmentService(store repository.Store, events *EventPublisher) *investmentService {
	return &investmentService{store: store, events: events, now: time.Now}
}

func (s *investmentService) Invest(ctx context.Context, p models.Principal, planID int64, amount decimal.Decimal) (_ *models.OngoingInvestment, err error) {
	ctx, done := startOperation(ctx, "Invest",
		attribute.Int64("user_id", p.ID),
		attribute.Int64("plan_id", planID),
		attribute.String("amount", amount.String()))
	defer func() { done(err) }()

	var (
		inv *models.OngoingInvestment
		tx  *models.Transaction
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		plan, err := repos.Plans.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		if err := models.ValidateAmount(amount); err != nil {
			return err
		}
		if err := plan.CheckBounds(amount); err != nil {
			return err
		}

		wallet, err := repos.Wallets.GetByUserID(ctx, p.ID)
		if err != nil {
			return err
		}
		// последняя и решающая проверка баланса
		if _, err := repos.Wallets.Debit(ctx, p.ID, amount); err != nil {
			return err
		}

		start := models.CalendarDate(s.now())
		inv = &models.OngoingInvestment{
			UserID:        p.ID,
			PlanID:        plan.ID,
			PlanName:      plan.Name,
			Amount:        amount,
			ROIPercent:    plan.ROIPercent,
			StartDate:     start,
			EndDate:       models.MaturityDate(start, plan.DurationMonths),
			Status:        models.InvestmentActive,
			AccruedProfit: decimal.Zero,
		}
		if err := repos.Investments.Create(ctx, inv); err != nil {
			return err
		}

		tx = &models.Transaction{
			UserID:      p.ID,
			Kind:        models.KindBuy,
			Amount:      amount,
			Currency:    wallet.Currency,
			Description: "Investment in " + plan.Name,
			Status:      models.StatusCompleted,
		}
		return repos.Transactions.Append(ctx, tx)
	})
	if err != nil {
		logOutcome(ctx, "investment rejected", err, "user_id", p.ID, "plan_id", planID, "amount", amount.String())
		return nil, err
	}

	observability.WithContext(ctx).Info("investment opened",
		"user_id", p.ID,
		"investment_id", inv.ID,
		"plan_id", planID,
		"amount", amount.StringFixed(models.MoneyPlaces),
		"end_date", inv.EndDate.Format(time.DateOnly))
	s.events.Publish(ctx, EventInvestmentOpened, p.ID, inv)
	s.events.Publish(ctx, EventTransactionAppended, p.ID, tx)
	return inv, nil
}

func (s *investmentService) Get(ctx context.Context, p models.Principal, id int64) (_ *models.OngoingInvestment, err error) {
	ctx, done := startOperation(ctx, "GetInvestment", attribute.Int64("user_id", p.ID), attribute.Int64("investment_id", id))
	defer func() { done(err) }()

	inv, err := s.store.Repositories().Investments.GetForUser(ctx, p.ID, id)
	if err != nil {
		logOutcome(ctx, "failed to get investment", err, "user_id", p.ID, "investment_id", id)
		return nil, err
	}
	return inv, nil
}

func (s *investmentService) List(ctx context.Context, p models.Principal) (_ []models.OngoingInvestment, err error) {
	ctx, done := startOperation(ctx, "ListInvestments", attribute.Int64("user_id", p.ID))
	defer func() { done(err) }()

	invs, err := s.store.Repositories().Investments.ListByUser(ctx, p.ID)
	if err != nil {
		logOutcome(ctx, "failed to list investments", err, "user_id", p.ID)
		return nil, err
	}
	return invs, nil
}

func (s *investmentService) Close(ctx context.Context, id int64, status models.InvestmentStatus) (_ *models.OngoingInvestment, err error) {
	ctx, done := startOperation(ctx, "CloseInvestment", attribute.Int64("investment_id", id), attribute.String("status", string(status)))
	defer func() { done(err) }()

	if !status.Terminal() {
		return nil, pkgerrors.ErrInvalidTransition
	}
	inv, err := s.store.Repositories().Investments.Close(ctx, id, status)
	if err != nil {
		logOutcome(ctx, "failed to close investment", err, "investment_id", id, "status", status)
		return nil, err
	}
	observability.WithContext(ctx).Info("investment closed", "investment_id", id, "user_id", inv.UserID, "status", status)
	return inv, nil
}
