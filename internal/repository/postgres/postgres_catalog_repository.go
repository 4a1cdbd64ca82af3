package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/honeynil/invest-ledger/internal/models"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

type PostgresPlanRepository struct {
	q Querier
}

func NewPostgresPlanRepository(q Querier) *PostgresPlanRepository {
	return &PostgresPlanRepository{q: q}
}

const planColumns = `id, name, description, roi_percent, duration_months, min_amount, max_amount, risk_level, created_at, updated_at`

func (r *PostgresPlanRepository) Create(ctx context.Context, plan *models.InvestmentPlan) (err error) {
	ctx, done := instrument(ctx, "CreatePlan")
	defer func() { done(err) }()

	query := `
	INSERT INTO investment_plans (name, description, roi_percent, duration_months, min_amount, max_amount, risk_level)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, created_at, updated_at
	`
	err = r.q.QueryRowContext(ctx, query,
		plan.Name, plan.Description, plan.ROIPercent, plan.DurationMonths, plan.MinAmount, plan.MaxAmount, nullString(string(plan.RiskLevel)),
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		slog.Error("failed to create plan", "method", "Create", "name", plan.Name, "error", err)
		return pkgerrors.Storage("create plan", err)
	}
	return nil
}

func (r *PostgresPlanRepository) Update(ctx context.Context, plan *models.InvestmentPlan) (err error) {
	ctx, done := instrument(ctx, "UpdatePlan", attribute.Int64("plan_id", plan.ID))
	defer func() { done(err) }()

	query := `
	UPDATE investment_plans
	SET name = $1, description = $2, roi_percent = $3, duration_months = $4, min_amount = $5, max_amount = $6, risk_level = $7, updated_at = NOW()
	WHERE id = $8
	RETURNING created_at, updated_at
	`
	err = r.q.QueryRowContext(ctx, query,
		plan.Name, plan.Description, plan.ROIPercent, plan.DurationMonths, plan.MinAmount, plan.MaxAmount, nullString(string(plan.RiskLevel)), plan.ID,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pkgerrors.ErrPlanNotFound
	}
	if err != nil {
		slog.Error("failed to update plan", "method", "Update", "plan_id", plan.ID, "error", err)
		return pkgerrors.Storage("update plan", err)
	}
	return nil
}

func (r *PostgresPlanRepository) GetByID(ctx context.Context, id int64) (_ *models.InvestmentPlan, err error) {
	ctx, done := instrument(ctx, "GetPlanByID", attribute.Int64("plan_id", id))
	defer func() { done(err) }()

	plan, err := scanPlan(r.q.QueryRowContext(ctx, `SELECT `+planColumns+` FROM investment_plans WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrPlanNotFound
	}
	if err != nil {
		slog.Error("failed to get plan", "method", "GetByID", "plan_id", id, "error", err)
		return nil, pkgerrors.Storage("get plan", err)
	}
	return plan, nil
}

func (r *PostgresPlanRepository) List(ctx context.Context) (_ []models.InvestmentPlan, err error) {
	ctx, done := instrument(ctx, "ListPlans")
	defer func() { done(err) }()

	rows, err := r.q.QueryContext(ctx, `SELECT `+planColumns+` FROM investment_plans ORDER BY id`)
	if err != nil {
		slog.Error("failed to list plans", "method", "List", "error", err)
		return nil, pkgerrors.Storage("list plans", err)
	}
	defer closeRows(rows, "ListPlans")

	var plans []models.InvestmentPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, pkgerrors.Storage("scan plan", err)
		}
		plans = append(plans, *plan)
	}
	if err = rows.Err(); err != nil {
		return nil, pkgerrors.Storage("iterate plans", err)
	}
	return plans, nil
}

func scanPlan(row rowScanner) (*models.InvestmentPlan, error) {
	var (
		plan models.InvestmentPlan
		risk sql.NullString
	)
	err := row.Scan(
		&plan.ID,
		&plan.Name,
		&plan.Description,
		&plan.ROIPercent,
		&plan.DurationMonths,
		&plan.MinAmount,
		&plan.MaxAmount,
		&risk,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	plan.RiskLevel = models.RiskLevel(risk.String)
	return &plan, nil
}

type PostgresTraderRepository struct {
	q Querier
}

func NewPostgresTraderRepository(q Querier) *PostgresTraderRepository {
	return &PostgresTraderRepository{q: q}
}

func (r *PostgresTraderRepository) Upsert(ctx context.Context, profile *models.TraderProfile) (err error) {
	ctx, done := instrument(ctx, "UpsertTrader", attribute.Int64("trader_id", profile.ID))
	defer func() { done(err) }()

	query := `
	INSERT INTO trader_profiles (id, display_name, min_copy_amount, risk_level)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET display_name = EXCLUDED.display_name, min_copy_amount = EXCLUDED.min_copy_amount, risk_level = EXCLUDED.risk_level, updated_at = NOW()
	RETURNING updated_at
	`
	err = r.q.QueryRowContext(ctx, query, profile.ID, profile.DisplayName, profile.MinCopyAmount, nullString(string(profile.RiskLevel))).
		Scan(&profile.UpdatedAt)
	if err != nil {
		slog.Error("failed to upsert trader profile", "method", "Upsert", "trader_id", profile.ID, "error", err)
		return pkgerrors.Storage("upsert trader profile", err)
	}
	return nil
}

func (r *PostgresTraderRepository) GetByID(ctx context.Context, id int64) (_ *models.TraderProfile, err error) {
	ctx, done := instrument(ctx, "GetTraderByID", attribute.Int64("trader_id", id))
	defer func() { done(err) }()

	var (
		profile models.TraderProfile
		risk    sql.NullString
	)
	query := `SELECT id, display_name, min_copy_amount, risk_level, updated_at FROM trader_profiles WHERE id = $1`
	err = r.q.QueryRowContext(ctx, query, id).
		Scan(&profile.ID, &profile.DisplayName, &profile.MinCopyAmount, &risk, &profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrMasterNotFound
	}
	if err != nil {
		slog.Error("failed to get trader profile", "method", "GetByID", "trader_id", id, "error", err)
		return nil, pkgerrors.Storage("get trader profile", err)
	}
	profile.RiskLevel = models.RiskLevel(risk.String)
	return &profile, nil
}
