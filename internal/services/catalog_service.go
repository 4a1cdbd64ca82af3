package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/honeynil/invest-ledger/internal/infrastructure/observability"
	"github.com/honeynil/invest-ledger/internal/infrastructure/redis"
	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository"
	"go.opentelemetry.io/otel/attribute"
)

// CatalogService serves investment plans and copy-trader profiles. Reads go
// through a Redis cache; a cache failure only costs a store round trip.
type CatalogService interface {
	ListPlans(ctx context.Context) ([]models.InvestmentPlan, error)
	GetPlan(ctx context.Context, id int64) (*models.InvestmentPlan, error)
	CreatePlan(ctx context.Context, p models.Principal, plan *models.InvestmentPlan) error
	UpdatePlan(ctx context.Context, p models.Principal, plan *models.InvestmentPlan) error
	GetTrader(ctx context.Context, id int64) (*models.TraderProfile, error)
	UpsertTrader(ctx context.Context, p models.Principal, profile *models.TraderProfile) error
}

type catalogService struct {
	store    repository.Store
	cache    redis.RedisClient
	cacheTTL time.Duration
}

func NewCatalogService(store repository.Store, cache redis.RedisClient, cacheTTL time.Duration) *catalogService {
	return &catalogService{store: store, cache: cache, cacheTTL: cacheTTL}
}

func (s *catalogService) ListPlans(ctx context.Context) (_ []models.InvestmentPlan, err error) {
	ctx, done := startOperation(ctx, "ListPlans")
	defer func() { done(err) }()

	var plans []models.InvestmentPlan
	if s.cached(ctx, redis.PlanListKey, &plans) {
		return plans, nil
	}

	plans, err = s.store.Repositories().Plans.List(ctx)
	if err != nil {
		logOutcome(ctx, "failed to list plans", err)
		return nil, err
	}
	s.remember(ctx, redis.PlanListKey, plans)
	return plans, nil
}

func (s *catalogService) GetPlan(ctx context.Context, id int64) (_ *models.InvestmentPlan, err error) {
	ctx, done := startOperation(ctx, "GetPlan", attribute.Int64("plan_id", id))
	defer func() { done(err) }()

	key := redis.PlanKey(id)
	var plan models.InvestmentPlan
	if s.cached(ctx, key, &plan) {
		return &plan, nil
	}

	found, err := s.store.Repositories().Plans.GetByID(ctx, id)
	if err != nil {
		logOutcome(ctx, "failed to get plan", err, "plan_id", id)
		return nil, err
	}
	s.remember(ctx, key, found)
	return found, nil
}

func (s *catalogService) CreatePlan(ctx context.Context, p models.Principal, plan *models.InvestmentPlan) (err error) {
	ctx, done := startOperation(ctx, "CreatePlan")
	defer func() { done(err) }()

	if err = requireAdmin(ctx, p, "CreatePlan"); err != nil {
		return err
	}
	if err = plan.Validate(); err != nil {
		logOutcome(ctx, "invalid plan", err, "name", plan.Name)
		return err
	}
	if err = s.store.Repositories().Plans.Create(ctx, plan); err != nil {
		logOutcome(ctx, "failed to create plan", err, "name", plan.Name)
		return err
	}

	s.forget(ctx, redis.PlanListKey)
	observability.WithContext(ctx).Info("plan created", "plan_id", plan.ID, "name", plan.Name, "admin_id", p.ID)
	return nil
}

// UpdatePlan edits the catalog entry only; investments keep the name and ROI
// they were opened with.
func (s *catalogService) UpdatePlan(ctx context.Context, p models.Principal, plan *models.InvestmentPlan) (err error) {
	ctx, done := startOperation(ctx, "UpdatePlan", attribute.Int64("plan_id", plan.ID))
	defer func() { done(err) }()

	if err = requireAdmin(ctx, p, "UpdatePlan"); err != nil {
		return err
	}
	if err = plan.Validate(); err != nil {
		logOutcome(ctx, "invalid plan", err, "plan_id", plan.ID)
		return err
	}
	if err = s.store.Repositories().Plans.Update(ctx, plan); err != nil {
		logOutcome(ctx, "failed to update plan", err, "plan_id", plan.ID)
		return err
	}

	s.forget(ctx, redis.PlanKey(plan.ID), redis.PlanListKey)
	observability.WithContext(ctx).Info("plan updated", "plan_id", plan.ID, "admin_id", p.ID)
	return nil
}

func (s *catalogService) GetTrader(ctx context.Context, id int64) (_ *models.TraderProfile, err error) {
	ctx, done := startOperation(ctx, "GetTrader", attribute.Int64("trader_id", id))
	defer func() { done(err) }()

	key := redis.TraderKey(id)
	var profile models.TraderProfile
	if s.cached(ctx, key, &profile) {
		return &profile, nil
	}

	found, err := s.store.Repositories().Traders.GetByID(ctx, id)
	if err != nil {
		logOutcome(ctx, "failed to get trader profile", err, "trader_id", id)
		return nil, err
	}
	s.remember(ctx, key, found)
	return found, nil
}

func (s *catalogService) UpsertTrader(ctx context.Context, p models.Principal, profile *models.TraderProfile) (err error) {
	ctx, done := startOperation(ctx, "UpsertTrader", attribute.Int64("trader_id", profile.ID))
	defer func() { done(err) }()

	if err = requireAdmin(ctx, p, "UpsertTrader"); err != nil {
		return err
	}
	if err = profile.Validate(); err != nil {
		logOutcome(ctx, "invalid trader profile", err, "trader_id", profile.ID)
		return err
	}
	if err = s.store.Repositories().Traders.Upsert(ctx, profile); err != nil {
		logOutcome(ctx, "failed to upsert trader profile", err, "trader_id", profile.ID)
		return err
	}

	s.forget(ctx, redis.TraderKey(profile.ID))
	observability.WithContext(ctx).Info("trader profile saved", "trader_id", profile.ID, "admin_id", p.ID)
	return nil
}

func (s *catalogService) cached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !stderrors.Is(err, redis.ErrKeyNotFound) {
			observability.WithContext(ctx).Error("failed to read catalog cache", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		observability.WithContext(ctx).Error("failed to unmarshal cached catalog entry", "key", key, "error", err)
		return false
	}
	return true
}

func (s *catalogService) remember(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		observability.WithContext(ctx).Error("failed to marshal catalog entry", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
		observability.WithContext(ctx).Error("failed to cache catalog entry", "key", key, "error", err)
	}
}

func (s *catalogService) forget(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	for _, key := range keys {
		if err := s.cache.Del(ctx, key); err != nil {
			observability.WithContext(ctx).Error("failed to invalidate catalog cache", "key", key, "error", err)
		}
	}
}
