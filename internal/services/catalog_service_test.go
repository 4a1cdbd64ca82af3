package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/honeynil/invest-ledger/internal/infrastructure/redis"
	redismocks "github.com/honeynil/invest-ledger/internal/infrastructure/redis/mocks"
	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository/memory"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) (*catalogService, *redismocks.MockRedisClient) {
	t.Helper()
	ctrl := gomock.NewController(t)
	cache := redismocks.NewMockRedisClient(ctrl)
	return NewCatalogService(memory.NewStore(), cache, time.Minute), cache
}

func samplePlan() *models.InvestmentPlan {
	return &models.InvestmentPlan{
		Name:           "Starter",
		ROIPercent:     dec("8"),
		DurationMonths: 6,
		MinAmount:      dec("100"),
		RiskLevel:      models.RiskLow,
	}
}

func TestCatalogService_GetPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit skips the store", func(t *testing.T) {
		svc, cache := newCatalog(t)
		raw, err := json.Marshal(models.InvestmentPlan{ID: 7, Name: "Cached", MinAmount: dec("1")})
		require.NoError(t, err)
		cache.EXPECT().Get(gomock.Any(), redis.PlanKey(7)).Return(string(raw), nil)

		plan, err := svc.GetPlan(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "Cached", plan.Name)
	})

	t.Run("miss loads and caches", func(t *testing.T) {
		svc, cache := newCatalog(t)
		plan := samplePlan()
		cache.EXPECT().Del(gomock.Any(), redis.PlanListKey).Return(nil)
		require.NoError(t, svc.CreatePlan(ctx, admin, plan))

		cache.EXPECT().Get(gomock.Any(), redis.PlanKey(plan.ID)).Return("", redis.ErrKeyNotFound)
		cache.EXPECT().Set(gomock.Any(), redis.PlanKey(plan.ID), gomock.Any(), time.Minute).Return(nil)

		got, err := svc.GetPlan(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, "Starter", got.Name)
	})

	t.Run("cache errors fall back to the store", func(t *testing.T) {
		svc, cache := newCatalog(t)
		plan := samplePlan()
		cache.EXPECT().Del(gomock.Any(), gomock.Any()).Return(nil)
		require.NoError(t, svc.CreatePlan(ctx, admin, plan))

		cache.EXPECT().Get(gomock.Any(), redis.PlanKey(plan.ID)).Return("", errors.New("redis down"))
		cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

		got, err := svc.GetPlan(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, plan.ID, got.ID)
	})

	t.Run("not found is not cached", func(t *testing.T) {
		svc, cache := newCatalog(t)
		cache.EXPECT().Get(gomock.Any(), redis.PlanKey(404)).Return("", redis.ErrKeyNotFound)

		_, err := svc.GetPlan(ctx, 404)
		assert.ErrorIs(t, err, pkgerrors.ErrPlanNotFound)
	})
}

func TestCatalogService_ListPlans(t *testing.T) {
	ctx := context.Background()
	svc, cache := newCatalog(t)

	cache.EXPECT().Del(gomock.Any(), redis.PlanListKey).Return(nil).Times(2)
	first := samplePlan()
	require.NoError(t, svc.CreatePlan(ctx, admin, first))
	second := samplePlan()
	second.Name = "Growth"
	require.NoError(t, svc.CreatePlan(ctx, admin, second))

	cache.EXPECT().Get(gomock.Any(), redis.PlanListKey).Return("", redis.ErrKeyNotFound)
	cache.EXPECT().Set(gomock.Any(), redis.PlanListKey, gomock.Any(), time.Minute).Return(nil)

	plans, err := svc.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "Starter", plans[0].Name)
	assert.Equal(t, "Growth", plans[1].Name)
}

func TestCatalogService_UpdatePlanInvalidates(t *testing.T) {
	ctx := context.Background()
	svc, cache := newCatalog(t)
	plan := samplePlan()
	cache.EXPECT().Del(gomock.Any(), redis.PlanListKey).Return(nil)
	require.NoError(t, svc.CreatePlan(ctx, admin, plan))

	gomock.InOrder(
		cache.EXPECT().Del(gomock.Any(), redis.PlanKey(plan.ID)).Return(nil),
		cache.EXPECT().Del(gomock.Any(), redis.PlanListKey).Return(errors.New("redis down")),
	)
	plan.ROIPercent = dec("9.5")
	require.NoError(t, svc.UpdatePlan(ctx, admin, plan))

	missing := samplePlan()
	missing.ID = 999
	assert.ErrorIs(t, svc.UpdatePlan(ctx, admin, missing), pkgerrors.ErrPlanNotFound)
}

func TestCatalogService_AdminOnly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog(t)
	user := models.Principal{ID: 5, Role: models.RoleUser}

	assert.ErrorIs(t, svc.CreatePlan(ctx, user, samplePlan()), pkgerrors.ErrForbidden)
	assert.ErrorIs(t, svc.UpdatePlan(ctx, user, samplePlan()), pkgerrors.ErrForbidden)
	assert.ErrorIs(t, svc.UpsertTrader(ctx, user, &models.TraderProfile{ID: 1, DisplayName: "x"}), pkgerrors.ErrForbidden)

	bad := samplePlan()
	bad.DurationMonths = 0
	assert.ErrorIs(t, svc.CreatePlan(ctx, admin, bad), pkgerrors.ErrInvalidInput)
}

func TestCatalogService_Traders(t *testing.T) {
	ctx := context.Background()
	svc, cache := newCatalog(t)
	profile := &models.TraderProfile{ID: 3, DisplayName: "Top Trader", MinCopyAmount: dec("100")}

	cache.EXPECT().Del(gomock.Any(), redis.TraderKey(3)).Return(nil)
	require.NoError(t, svc.UpsertTrader(ctx, admin, profile))

	cache.EXPECT().Get(gomock.Any(), redis.TraderKey(3)).Return("", redis.ErrKeyNotFound)
	cache.EXPECT().Set(gomock.Any(), redis.TraderKey(3), gomock.Any(), time.Minute).Return(nil)
	got, err := svc.GetTrader(ctx, 3)
	require.NoError(t, err)
	assert.True(t, got.MinCopyAmount.Equal(dec("100")))

	cache.EXPECT().Get(gomock.Any(), redis.TraderKey(4)).Return("", redis.ErrKeyNotFound)
	_, err = svc.GetTrader(ctx, 4)
	assert.ErrorIs(t, err, pkgerrors.ErrMasterNotFound)
}

func TestCatalogService_NoCache(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(memory.NewStore(), nil, time.Minute)
	plan := samplePlan()
	require.NoError(t, svc.CreatePlan(ctx, admin, plan))

	got, err := svc.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.Name, got.Name)
}
