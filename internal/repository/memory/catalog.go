package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/honeynil/invest-ledger/internal/models"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
)

type planRepository struct{ view }

func (r *planRepository) Create(ctx context.Context, plan *models.InvestmentPlan) error {
	d, release := r.acquire()
	defer release()

	now := r.now()
	plan.ID = d.next("plans")
	plan.CreatedAt = now
	plan.UpdatedAt = now
	d.plans[plan.ID] = *plan
	return nil
}

func (r *planRepository) Update(ctx context.Context, plan *models.InvestmentPlan) error {
	d, release := r.acquire()
	defer release()

	existing, ok := d.plans[plan.ID]
	if !ok {
		return pkgerrors.ErrPlanNotFound
	}
	plan.CreatedAt = existing.CreatedAt
	plan.UpdatedAt = r.now()
	d.plans[plan.ID] = *plan
	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id int64) (*models.InvestmentPlan, error) {
	d, release := r.acquire()
	defer release()

	plan, ok := d.plans[id]
	if !ok {
		return nil, pkgerrors.ErrPlanNotFound
	}
	return &plan, nil
}

func (r *planRepository) List(ctx context.Context) ([]models.InvestmentPlan, error) {
	d, release := r.acquire()
	defer release()

	plans := make([]models.InvestmentPlan, 0, len(d.plans))
	for _, p := range d.plans {
		plans = append(plans, p)
	}
	slices.SortFunc(plans, func(a, b models.InvestmentPlan) int { return cmp.Compare(a.ID, b.ID) })
	return plans, nil
}

type traderRepository struct{ view }

func (r *traderRepository) Upsert(ctx context.Context, profile *models.TraderProfile) error {
	d, release := r.acquire()
	defer release()

	profile.UpdatedAt = r.now()
	d.traders[profile.ID] = *profile
	return nil
}

func (r *traderRepository) GetByID(ctx context.Context, id int64) (*models.TraderProfile, error) {
	d, release := r.acquire()
	defer release()

	profile, ok := d.traders[id]
	if !ok {
		return nil, pkgerrors.ErrMasterNotFound
	}
	return &profile, nil
}
