package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/honeynil/invest-ledger/internal/models"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

const uniqueViolation = "23505"

type PostgresUserRepository struct {
	q Querier
}

func NewPostgresUserRepository(q Querier) *PostgresUserRepository {
	return &PostgresUserRepository{q: q}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, done := instrument(ctx, "CreateUser")
	defer func() { done(err) }()

	if user == nil || user.Username == "" || user.PasswordHash == "" {
		return pkgerrors.ErrInvalidInput
	}

	query := `
	INSERT INTO users (username, password_hash, role, kyc_status)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at
	`
	err = r.q.QueryRowContext(ctx, query, user.Username, user.PasswordHash, user.Role, user.KYCStatus).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			slog.Warn("username already exists", "method", "Create", "username", user.Username)
			return pkgerrors.ErrUsernameExists
		}
		slog.Error("failed to create user", "method", "Create", "username", user.Username, "error", err)
		return pkgerrors.Storage("create user", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (_ *models.User, err error) {
	ctx, done := instrument(ctx, "GetUserByID", attribute.Int64("user_id", id))
	defer func() { done(err) }()

	query := `SELECT id, username, password_hash, role, kyc_status, created_at FROM users WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (_ *models.User, err error) {
	ctx, done := instrument(ctx, "GetUserByUsername")
	defer func() { done(err) }()

	if username == "" {
		return nil, pkgerrors.ErrInvalidInput
	}
	query := `SELECT id, username, password_hash, role, kyc_status, created_at FROM users WHERE username = $1`
	return r.scanOne(ctx, query, username)
}

func (r *PostgresUserRepository) scanOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.KYCStatus,
		&user.CreatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		slog.Error("failed to get user", "error", err)
		return nil, pkgerrors.Storage("get user", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) SetKYCStatus(ctx context.Context, userID int64, status models.KYCStatus) (err error) {
	ctx, done := instrument(ctx, "SetUserKYCStatus", attribute.Int64("user_id", userID))
	defer func() { done(err) }()

	res, err := r.q.ExecContext(ctx, `UPDATE users SET kyc_status = $1 WHERE id = $2`, status, userID)
	if err != nil {
		slog.Error("failed to update kyc status", "method", "SetKYCStatus", "user_id", userID, "error", err)
		return pkgerrors.Storage("update kyc status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.Storage("check rows affected", err)
	}
	if affected == 0 {
		return pkgerrors.ErrUserNotFound
	}
	return nil
}
