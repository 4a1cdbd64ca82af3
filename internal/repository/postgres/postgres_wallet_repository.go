package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/honeynil/invest-ledger/internal/models"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type PostgresWalletRepository struct {
	q Querier
}

func NewPostgresWalletRepository(q Querier) *PostgresWalletRepository {
	return &PostgresWalletRepository{q: q}
}

func (r *PostgresWalletRepository) Create(ctx context.Context, wallet *models.Wallet) (err error) {
	ctx, done := instrument(ctx, "CreateWallet")
	defer func() { done(err) }()

	if wallet == nil || wallet.UserID <= 0 || wallet.Currency == "" {
		return pkgerrors.ErrInvalidInput
	}

	query := `
	INSERT INTO wallets (user_id, balance, currency)
	VALUES ($1, 0, $2)
	RETURNING balance, created_at, updated_at
	`
	err = r.q.QueryRowContext(ctx, query, wallet.UserID, wallet.Currency).
		Scan(&wallet.Balance, &wallet.CreatedAt, &wallet.UpdatedAt)
	if err != nil {
		slog.Error("failed to create wallet", "method", "Create", "user_id", wallet.UserID, "error", err)
		return pkgerrors.Storage("create wallet", err)
	}
	return nil
}

func (r *PostgresWalletRepository) GetByUserID(ctx context.Context, userID int64) (_ *models.Wallet, err error) {
	ctx, done := instrument(ctx, "GetWallet", attribute.Int64("user_id", userID))
	defer func() { done(err) }()

	var wallet models.Wallet
	query := `SELECT user_id, balance, currency, created_at, updated_at FROM wallets WHERE user_id = $1`
	err = r.q.QueryRowContext(ctx, query, userID).
		Scan(&wallet.UserID, &wallet.Balance, &wallet.Currency, &wallet.CreatedAt, &wallet.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Error("wallet not found", "method", "GetByUserID", "user_id", userID)
		return nil, pkgerrors.ErrWalletNotFound
	}
	if err != nil {
		slog.Error("failed to get wallet", "method", "GetByUserID", "user_id", userID, "error", err)
		return nil, pkgerrors.Storage("get wallet", err)
	}
	return &wallet, nil
}

// Debit subtracts amount only if the stored balance covers it. The check and
// the write are one statement, so concurrent debits serialize on the row lock.
func (r *PostgresWalletRepository) Debit(ctx context.Context, userID int64, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	ctx, done := instrument(ctx, "DebitWallet", attribute.Int64("user_id", userID), attribute.String("amount", amount.String()))
	defer func() { done(err) }()

	if err = models.ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	query := `
		UPDATE wallets
		SET balance = balance - $1, updated_at = NOW()
		WHERE user_id = $2
		AND balance >= $1
		RETURNING balance
		`
	err = r.q.QueryRowContext(ctx, query, amount, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, r.missReason(ctx, userID, amount)
	}
	if err != nil {
		slog.Error("failed to debit wallet", "method", "Debit", "user_id", userID, "error", err)
		return decimal.Zero, pkgerrors.Storage("debit wallet", err)
	}
	return balance, nil
}

// missReason tells a missing wallet apart from an uncovered debit.
func (r *PostgresWalletRepository) missReason(ctx context.Context, userID int64, amount decimal.Decimal) error {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		slog.Error("failed to check wallet", "method", "Debit", "user_id", userID, "error", err)
		return pkgerrors.Storage("check wallet", err)
	}
	if !exists {
		slog.Error("wallet not found", "method", "Debit", "user_id", userID)
		return pkgerrors.ErrWalletNotFound
	}
	slog.Warn("insufficient funds", "method", "Debit", "user_id", userID, "amount", amount.String())
	return pkgerrors.ErrInsufficientFunds
}

func (r *PostgresWalletRepository) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	ctx, done := instrument(ctx, "CreditWallet", attribute.Int64("user_id", userID), attribute.String("amount", amount.String()))
	defer func() { done(err) }()

	if err = models.ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	query := `UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE user_id = $2 RETURNING balance`
	err = r.q.QueryRowContext(ctx, query, amount, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Error("wallet not found", "method", "Credit", "user_id", userID)
		return decimal.Zero, pkgerrors.ErrWalletNotFound
	}
	if err != nil {
		slog.Error("failed to credit wallet", "method", "Credit", "user_id", userID, "error", err)
		return decimal.Zero, pkgerrors.Storage("credit wallet", err)
	}
	return balance, nil
}
