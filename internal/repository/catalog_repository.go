package repository

import (
	"context"

	"github.com/honeynil/invest-ledger/internal/models"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *models.InvestmentPlan) error
	Update(ctx context.Context, plan *models.InvestmentPlan) error
	GetByID(ctx context.Context, id int64) (*models.InvestmentPlan, error)
	List(ctx context.Context) ([]models.InvestmentPlan, error)
}

type TraderRepository interface {
	Upsert(ctx context.Context, profile *models.TraderProfile) error
	GetByID(ctx context.Context, id int64) (*models.TraderProfile, error)
}
