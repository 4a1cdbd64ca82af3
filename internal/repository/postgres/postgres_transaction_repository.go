package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"

	"github.com/honeynil/invest-ledger/internal/models"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

type PostgresTransactionRepository struct {
	q Querier
}

func NewPostgresTransactionRepository(q Querier) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{q: q}
}

const transactionColumns = `id, user_id, kind, amount, currency, description, reference, status, created_at`

func (r *PostgresTransactionRepository) Append(ctx context.Context, tx *models.Transaction) (err error) {
	ctx, done := instrument(ctx, "AppendTransaction")
	defer func() { done(err) }()

	if err = tx.Validate(); err != nil {
		slog.Error("invalid transaction", "method", "Append", "error", err)
		return err
	}

	query := `INSERT INTO transactions (user_id, kind, amount, currency, description, reference, status) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	err = r.q.QueryRowContext(ctx, query, tx.UserID, tx.Kind, tx.Amount, tx.Currency, tx.Description, nullString(tx.Reference), tx.Status).
		Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		slog.Error("failed to append transaction", "method", "Append", "user_id", tx.UserID, "kind", tx.Kind, "status", tx.Status, "error", err)
		return pkgerrors.Storage("append transaction", err)
	}

	slog.Info("transaction appended", "method", "Append", "id", tx.ID, "user_id", tx.UserID, "kind", tx.Kind, "status", tx.Status)
	return nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id int64) (_ *models.Transaction, err error) {
	ctx, done := instrument(ctx, "GetTransactionByID", attribute.Int64("transaction_id", id))
	defer func() { done(err) }()

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	tx, err := scanTransaction(r.q.QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Error("transaction not found", "method", "GetByID", "transaction_id", id)
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if err != nil {
		slog.Error("failed to get transaction by id", "method", "GetByID", "transaction_id", id, "error", err)
		return nil, pkgerrors.Storage("get transaction by id", err)
	}
	return tx, nil
}

func (r *PostgresTransactionRepository) ListByUser(ctx context.Context, userID int64, kind *models.TransactionKind) (_ []models.Transaction, err error) {
	ctx, done := instrument(ctx, "ListTransactions", attribute.Int64("user_id", userID))
	defer func() { done(err) }()

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{userID}
	if kind != nil {
		query += ` AND kind = $2`
		args = append(args, *kind)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("failed to list transactions", "method", "ListByUser", "user_id", userID, "error", err)
		return nil, pkgerrors.Storage("list transactions", err)
	}
	defer closeRows(rows, "ListByUser")

	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, pkgerrors.Storage("scan transaction", err)
		}
		txs = append(txs, *tx)
	}
	if err = rows.Err(); err != nil {
		return nil, pkgerrors.Storage("iterate transactions", err)
	}
	return txs, nil
}

func (r *PostgresTransactionRepository) SettleWithdrawal(ctx context.Context, id int64, status models.TransactionStatus) (err error) {
	ctx, done := instrument(ctx, "SettleWithdrawal", attribute.Int64("transaction_id", id), attribute.String("status", string(status)))
	defer func() { done(err) }()

	if !models.StatusPending.CanSettleTo(status) {
		return pkgerrors.ErrInvalidTransactionStatus
	}

	query := `UPDATE transactions SET status = $1 WHERE id = $2 AND kind = 'withdraw' AND status = 'pending'`
	res, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		slog.Error("failed to settle withdrawal", "method", "SettleWithdrawal", "transaction_id", id, "error", err)
		return pkgerrors.Storage("settle withdrawal", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.Storage("check rows affected", err)
	}
	if affected == 1 {
		return nil
	}

	var kind models.TransactionKind
	err = r.q.QueryRowContext(ctx, `SELECT kind FROM transactions WHERE id = $1`, id).Scan(&kind)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return pkgerrors.ErrTransactionNotFound
	case err != nil:
		return pkgerrors.Storage("check withdrawal", err)
	case kind != models.KindWithdraw:
		return pkgerrors.ErrTransactionNotFound
	}
	slog.Warn("withdrawal already settled", "method", "SettleWithdrawal", "transaction_id", id)
	return pkgerrors.ErrInvalidTransition
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		tx        models.Transaction
		reference sql.NullString
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Kind, &tx.Amount, &tx.Currency, &tx.Description, &reference, &tx.Status, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	tx.Reference = reference.String
	return &tx, nil
}
