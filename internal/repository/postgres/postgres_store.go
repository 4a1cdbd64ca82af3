package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/invest-ledger/internal/infrastructure/observability"
	"github.com/honeynil/invest-ledger/internal/repository"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Repositories() repository.Repositories {
	return repositoriesFor(s.db)
}

// WithinTx runs fn inside one database transaction. Any error returned by fn
// rolls the whole unit back.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	ctx, done := instrument(ctx, "WithinTx")
	defer func() { done(err) }()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "WithinTx", "error", err)
		return pkgerrors.Storage("begin transaction", err)
	}

	if err = fn(ctx, repositoriesFor(dbTx)); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "method", "WithinTx", "error", rbErr)
			return fmt.Errorf("rollback failed: %v; original error: %w", rbErr, err)
		}
		return err
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "WithinTx", "error", err)
		return pkgerrors.Storage("commit transaction", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func repositoriesFor(q Querier) repository.Repositories {
	return repository.Repositories{
		Users:        NewPostgresUserRepository(q),
		Wallets:      NewPostgresWalletRepository(q),
		Transactions: NewPostgresTransactionRepository(q),
		Plans:        NewPostgresPlanRepository(q),
		Traders:      NewPostgresTraderRepository(q),
		Investments:  NewPostgresInvestmentRepository(q),
		Copies:       NewPostgresCopyRepository(q),
		KYC:          NewPostgresKYCRepository(q),
	}
}

// instrument opens a span for a repository method and returns the func that
// records its outcome in the span and the repository metrics.
func instrument(ctx context.Context, method string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := otel.Tracer("ledger-repository").Start(ctx, method, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		status := "success"
		switch {
		case err == nil:
		case pkgerrors.IsBusiness(err):
			status = "rejected"
			span.SetStatus(codes.Error, err.Error())
		default:
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues(method, status).Inc()
		observability.RepositoryDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		span.End()
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func closeRows(rows *sql.Rows, method string) {
	if err := rows.Close(); err != nil {
		slog.Error("error closing rows", "method", method, "error", err)
	}
}
