package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

type PostgresKYCRepository struct {
	q Querier
}

func NewPostgresKYCRepository(q Querier) *PostgresKYCRepository {
	return &PostgresKYCRepository{q: q}
}

const kycColumns = `id, user_id, full_name, date_of_birth, nationality, address, document_type, document_number, document_refs, status, rejection_reason, submitted_at, reviewed_at, reviewed_by`

func (r *PostgresKYCRepository) Create(ctx context.Context, sub *models.KYCSubmission) (err error) {
	ctx, done := instrument(ctx, "CreateKYCSubmission", attribute.Int64("user_id", sub.UserID))
	defer func() { done(err) }()

	query := `
	INSERT INTO kyc_submissions (user_id, full_name, date_of_birth, nationality, address, document_type, document_number, document_refs, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
	RETURNING id, status, submitted_at
	`
	err = r.q.QueryRowContext(ctx, query,
		sub.UserID, sub.FullName, nullTime(sub.DateOfBirth), sub.Nationality, sub.Address,
		sub.DocumentType, sub.DocumentNumber, pq.Array(sub.DocumentRefs),
	).Scan(&sub.ID, &sub.Status, &sub.SubmittedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			slog.Warn("pending kyc submission already exists", "method", "Create", "user_id", sub.UserID)
			return pkgerrors.ErrInvalidTransition
		}
		slog.Error("failed to create kyc submission", "method", "Create", "user_id", sub.UserID, "error", err)
		return pkgerrors.Storage("create kyc submission", err)
	}
	return nil
}

func (r *PostgresKYCRepository) GetByID(ctx context.Context, id int64) (_ *models.KYCSubmission, err error) {
	ctx, done := instrument(ctx, "GetKYCSubmission", attribute.Int64("submission_id", id))
	defer func() { done(err) }()

	return r.getOne(ctx, `SELECT `+kycColumns+` FROM kyc_submissions WHERE id = $1`, id)
}

func (r *PostgresKYCRepository) GetLatestByUser(ctx context.Context, userID int64) (_ *models.KYCSubmission, err error) {
	ctx, done := instrument(ctx, "GetLatestKYCSubmission", attribute.Int64("user_id", userID))
	defer func() { done(err) }()

	return r.getOne(ctx, `SELECT `+kycColumns+` FROM kyc_submissions WHERE user_id = $1 ORDER BY submitted_at DESC, id DESC LIMIT 1`, userID)
}

func (r *PostgresKYCRepository) getOne(ctx context.Context, query string, arg any) (*models.KYCSubmission, error) {
	sub, err := scanSubmission(r.q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrSubmissionNotFound
	}
	if err != nil {
		slog.Error("failed to get kyc submission", "error", err)
		return nil, pkgerrors.Storage("get kyc submission", err)
	}
	return sub, nil
}

func (r *PostgresKYCRepository) ListByStatus(ctx context.Context, status models.KYCStatus) (_ []models.KYCSubmission, err error) {
	ctx, done := instrument(ctx, "ListKYCSubmissions", attribute.String("status", string(status)))
	defer func() { done(err) }()

	rows, err := r.q.QueryContext(ctx, `SELECT `+kycColumns+` FROM kyc_submissions WHERE status = $1 ORDER BY submitted_at, id`, status)
	if err != nil {
		slog.Error("failed to list kyc submissions", "method", "ListByStatus", "status", status, "error", err)
		return nil, pkgerrors.Storage("list kyc submissions", err)
	}
	defer closeRows(rows, "ListKYCSubmissions")

	var out []models.KYCSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, pkgerrors.Storage("scan kyc submission", err)
		}
		out = append(out, *sub)
	}
	if err = rows.Err(); err != nil {
		return nil, pkgerrors.Storage("iterate kyc submissions", err)
	}
	return out, nil
}

// Review applies the decision only while the row is still pending; the status
// check and the write are the same statement.
func (r *PostgresKYCRepository) Review(ctx context.Context, id int64, review repository.Review) (_ *models.KYCSubmission, err error) {
	ctx, done := instrument(ctx, "ReviewKYCSubmission", attribute.Int64("submission_id", id), attribute.String("status", string(review.Status)))
	defer func() { done(err) }()

	query := `
	UPDATE kyc_submissions
	SET status = $1, rejection_reason = $2, reviewed_at = NOW(), reviewed_by = $3
	WHERE id = $4 AND status = 'pending'
	RETURNING ` + kycColumns
	sub, err := scanSubmission(r.q.QueryRowContext(ctx, query, review.Status, nullString(review.RejectionReason), review.ReviewerID, id))
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		slog.Error("failed to review kyc submission", "method", "Review", "submission_id", id, "error", err)
		return nil, pkgerrors.Storage("review kyc submission", err)
	}

	var exists bool
	if err = r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM kyc_submissions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, pkgerrors.Storage("check kyc submission", err)
	}
	if !exists {
		return nil, pkgerrors.ErrSubmissionNotFound
	}
	return nil, pkgerrors.ErrAlreadyReviewed
}

func scanSubmission(row rowScanner) (*models.KYCSubmission, error) {
	var (
		sub        models.KYCSubmission
		dob        sql.NullTime
		reason     sql.NullString
		reviewedAt sql.NullTime
		reviewedBy sql.NullInt64
	)
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.FullName,
		&dob,
		&sub.Nationality,
		&sub.Address,
		&sub.DocumentType,
		&sub.DocumentNumber,
		pq.Array(&sub.DocumentRefs),
		&sub.Status,
		&reason,
		&sub.SubmittedAt,
		&reviewedAt,
		&reviewedBy,
	)
	if err != nil {
		return nil, err
	}
	sub.DateOfBirth = timePtr(dob)
	sub.RejectionReason = reason.String
	sub.ReviewedAt = timePtr(reviewedAt)
	if reviewedBy.Valid {
		v := reviewedBy.Int64
		sub.ReviewedBy = &v
	}
	return &sub, nil
}
