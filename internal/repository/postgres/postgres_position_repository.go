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

type PostgresInvestmentRepository struct {
	q Querier
}

func NewPostgresInvestmentRepository(q Querier) *PostgresInvestmentRepository {
	return &PostgresInvestmentRepository{q: q}
}

const investmentColumns = `id, user_id, plan_id, plan_name, amount, roi_percent, start_date, end_date, status, accrued_profit, next_payout_date, next_payout_amount, created_at`

func (r *PostgresInvestmentRepository) Create(ctx context.Context, inv *models.OngoingInvestment) (err error) {
	ctx, done := instrument(ctx, "CreateInvestment", attribute.Int64("user_id", inv.UserID), attribute.Int64("plan_id", inv.PlanID))
	defer func() { done(err) }()

	query := `
	INSERT INTO ongoing_investments (user_id, plan_id, plan_name, amount, roi_percent, start_date, end_date, status, accrued_profit, next_payout_date, next_payout_amount)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id, created_at
	`
	err = r.q.QueryRowContext(ctx, query,
		inv.UserID, inv.PlanID, inv.PlanName, inv.Amount, inv.ROIPercent, inv.StartDate, inv.EndDate,
		inv.Status, inv.AccruedProfit, nullTime(inv.NextPayoutDate), inv.NextPayoutAmount,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		slog.Error("failed to create investment", "method", "Create", "user_id", inv.UserID, "plan_id", inv.PlanID, "error", err)
		return pkgerrors.Storage("create investment", err)
	}
	return nil
}

func (r *PostgresInvestmentRepository) GetForUser(ctx context.Context, userID, id int64) (_ *models.OngoingInvestment, err error) {
	ctx, done := instrument(ctx, "GetInvestment", attribute.Int64("user_id", userID), attribute.Int64("investment_id", id))
	defer func() { done(err) }()

	query := `SELECT ` + investmentColumns + ` FROM ongoing_investments WHERE id = $1 AND user_id = $2`
	inv, err := scanInvestment(r.q.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrInvestmentNotFound
	}
	if err != nil {
		slog.Error("failed to get investment", "method", "GetForUser", "investment_id", id, "error", err)
		return nil, pkgerrors.Storage("get investment", err)
	}
	return inv, nil
}

func (r *PostgresInvestmentRepository) ListByUser(ctx context.Context, userID int64) (_ []models.OngoingInvestment, err error) {
	ctx, done := instrument(ctx, "ListInvestments", attribute.Int64("user_id", userID))
	defer func() { done(err) }()

	query := `SELECT ` + investmentColumns + ` FROM ongoing_investments WHERE user_id = $1 ORDER BY start_date DESC, id DESC`
	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Error("failed to list investments", "method", "ListByUser", "user_id", userID, "error", err)
		return nil, pkgerrors.Storage("list investments", err)
	}
	defer closeRows(rows, "ListInvestments")

	var out []models.OngoingInvestment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, pkgerrors.Storage("scan investment", err)
		}
		out = append(out, *inv)
	}
	if err = rows.Err(); err != nil {
		return nil, pkgerrors.Storage("iterate investments", err)
	}
	return out, nil
}

func (r *PostgresInvestmentRepository) Close(ctx context.Context, id int64, status models.InvestmentStatus) (_ *models.OngoingInvestment, err error) {
	ctx, done := instrument(ctx, "CloseInvestment", attribute.Int64("investment_id", id), attribute.String("status", string(status)))
	defer func() { done(err) }()

	if !status.Terminal() {
		return nil, pkgerrors.ErrInvalidTransition
	}

	query := `UPDATE ongoing_investments SET status = $1 WHERE id = $2 AND status = 'active' RETURNING ` + investmentColumns
	inv, err := scanInvestment(r.q.QueryRowContext(ctx, query, status, id))
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		slog.Error("failed to close investment", "method", "Close", "investment_id", id, "error", err)
		return nil, pkgerrors.Storage("close investment", err)
	}

	var exists bool
	if err = r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM ongoing_investments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, pkgerrors.Storage("check investment", err)
	}
	if !exists {
		return nil, pkgerrors.ErrInvestmentNotFound
	}
	slog.Warn("investment already closed", "method", "Close", "investment_id", id)
	return nil, pkgerrors.ErrInvalidTransition
}

func scanInvestment(row rowScanner) (*models.OngoingInvestment, error) {
	var (
		inv        models.OngoingInvestment
		nextPayout sql.NullTime
	)
	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.PlanID,
		&inv.PlanName,
		&inv.Amount,
		&inv.ROIPercent,
		&inv.StartDate,
		&inv.EndDate,
		&inv.Status,
		&inv.AccruedProfit,
		&nextPayout,
		&inv.NextPayoutAmount,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.NextPayoutDate = timePtr(nextPayout)
	return &inv, nil
}

type PostgresCopyRepository struct {
	q Querier
}

func NewPostgresCopyRepository(q Querier) *PostgresCopyRepository {
	return &PostgresCopyRepository{q: q}
}

func (r *PostgresCopyRepository) Create(ctx context.Context, rel *models.CopyRelationship) (err error) {
	ctx, done := instrument(ctx, "CreateCopyRelationship", attribute.Int64("copier_id", rel.CopierID), attribute.Int64("master_id", rel.MasterID))
	defer func() { done(err) }()

	query := `
	INSERT INTO copy_relationships (copier_id, master_id, amount, allocation_percent, auto_copy, copy_open_positions, start_date, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id
	`
	err = r.q.QueryRowContext(ctx, query,
		rel.CopierID, rel.MasterID, rel.Amount, rel.AllocationPercent, rel.AutoCopy, rel.CopyOpenPositions, rel.StartDate, rel.Status,
	).Scan(&rel.ID)
	if err != nil {
		slog.Error("failed to create copy relationship", "method", "Create", "copier_id", rel.CopierID, "master_id", rel.MasterID, "error", err)
		return pkgerrors.Storage("create copy relationship", err)
	}
	return nil
}

func (r *PostgresCopyRepository) ListByCopier(ctx context.Context, copierID int64) (_ []models.CopyRelationship, err error) {
	ctx, done := instrument(ctx, "ListCopyRelationships", attribute.Int64("copier_id", copierID))
	defer func() { done(err) }()

	query := `
	SELECT id, copier_id, master_id, amount, allocation_percent, auto_copy, copy_open_positions, start_date, status
	FROM copy_relationships
	WHERE copier_id = $1
	ORDER BY start_date DESC, id DESC
	`
	rows, err := r.q.QueryContext(ctx, query, copierID)
	if err != nil {
		slog.Error("failed to list copy relationships", "method", "ListByCopier", "copier_id", copierID, "error", err)
		return nil, pkgerrors.Storage("list copy relationships", err)
	}
	defer closeRows(rows, "ListCopyRelationships")

	var out []models.CopyRelationship
	for rows.Next() {
		var rel models.CopyRelationship
		if err := rows.Scan(&rel.ID, &rel.CopierID, &rel.MasterID, &rel.Amount, &rel.AllocationPercent,
			&rel.AutoCopy, &rel.CopyOpenPositions, &rel.StartDate, &rel.Status); err != nil {
			return nil, pkgerrors.Storage("scan copy relationship", err)
		}
		out = append(out, rel)
	}
	if err = rows.Err(); err != nil {
		return nil, pkgerrors.Storage("iterate copy relationships", err)
	}
	return out, nil
}
