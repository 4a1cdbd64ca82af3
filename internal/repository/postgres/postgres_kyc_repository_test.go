package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository"
	"github.com/honeynil/invest-ledger/internal/repository/postgres"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kycRowColumns = []string{
	"id", "user_id", "full_name", "date_of_birth", "nationality", "address", "document_type", "document_number",
	"document_refs", "status", "rejection_reason", "submitted_at", "reviewed_at", "reviewed_by",
}

func TestPostgresKYCRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresKYCRepository(db)
	ctx := context.Background()

	newSubmission := func() *models.KYCSubmission {
		return &models.KYCSubmission{
			UserID:         4,
			FullName:       "Jane Roe",
			DocumentType:   models.DocumentPassport,
			DocumentNumber: "X1234567",
			DocumentRefs:   []string{"docs/4/front.png", "docs/4/back.png"},
		}
	}

	t.Run("Success", func(t *testing.T) {
		submittedAt := time.Now().UTC()
		sub := newSubmission()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO kyc_submissions`)).
			WithArgs(int64(4), "Jane Roe", sqlmock.AnyArg(), "", "", models.DocumentPassport, "X1234567", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status", "submitted_at"}).AddRow(int64(1), "pending", submittedAt))

		err := repo.Create(ctx, sub)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), sub.ID)
		assert.Equal(t, models.KYCStatusPending, sub.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PendingAlreadyExists", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO kyc_submissions`)).
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(ctx, newSubmission())
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresKYCRepository_GetLatestByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresKYCRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM kyc_submissions WHERE user_id = $1 ORDER BY submitted_at DESC, id DESC LIMIT 1`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(kycRowColumns).
			AddRow(int64(2), int64(4), "Jane Roe", nil, "GB", "", "passport", "X1234567",
				"{docs/4/front.png,docs/4/back.png}", "rejected", "blurry scan", now, now, int64(99)))

	sub, err := repo.GetLatestByUser(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/4/front.png", "docs/4/back.png"}, sub.DocumentRefs)
	assert.Equal(t, models.KYCStatusRejected, sub.Status)
	assert.Equal(t, "blurry scan", sub.RejectionReason)
	assert.Nil(t, sub.DateOfBirth)
	require.NotNil(t, sub.ReviewedBy)
	assert.Equal(t, int64(99), *sub.ReviewedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKYCRepository_Review(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresKYCRepository(db)
	ctx := context.Background()
	update := regexp.QuoteMeta(`UPDATE kyc_submissions SET status = $1, rejection_reason = $2, reviewed_at = NOW(), reviewed_by = $3 WHERE id = $4 AND status = 'pending'`)
	exists := regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM kyc_submissions WHERE id = $1)`)
	review := repository.Review{Status: models.KYCStatusApproved, ReviewerID: 99}

	t.Run("Approved", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(update).
			WithArgs(models.KYCStatusApproved, nil, int64(99), int64(1)).
			WillReturnRows(sqlmock.NewRows(kycRowColumns).
				AddRow(int64(1), int64(4), "Jane Roe", nil, "", "", "passport", "X1", "{a}", "approved", nil, now, now, int64(99)))

		sub, err := repo.Review(ctx, 1, review)
		require.NoError(t, err)
		assert.Equal(t, models.KYCStatusApproved, sub.Status)
		assert.NotNil(t, sub.ReviewedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyReviewed", func(t *testing.T) {
		mock.ExpectQuery(update).
			WithArgs(models.KYCStatusApproved, nil, int64(99), int64(1)).
			WillReturnRows(sqlmock.NewRows(kycRowColumns))
		mock.ExpectQuery(exists).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		sub, err := repo.Review(ctx, 1, review)
		assert.Nil(t, sub)
		assert.ErrorIs(t, err, pkgerrors.ErrAlreadyReviewed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(update).
			WithArgs(models.KYCStatusApproved, nil, int64(99), int64(8)).
			WillReturnRows(sqlmock.NewRows(kycRowColumns))
		mock.ExpectQuery(exists).
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := repo.Review(ctx, 8, review)
		assert.ErrorIs(t, err, pkgerrors.ErrSubmissionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
