package repository

import (
	"context"

	"github.com/honeynil/invest-ledger/internal/models"
)

// Review is the outcome written by a single KYC review.
type Review struct {
	Status          models.KYCStatus
	ReviewerID      int64
	RejectionReason string
}

type KYCRepository interface {
	Create(ctx context.Context, sub *models.KYCSubmission) error
	GetByID(ctx context.Context, id int64) (*models.KYCSubmission, error)
	GetLatestByUser(ctx context.Context, userID int64) (*models.KYCSubmission, error)
	ListByStatus(ctx context.Context, status models.KYCStatus) ([]models.KYCSubmission, error)
	// Review transitions a pending submission. A submission that is no longer
	// pending fails with ErrAlreadyReviewed.
	Review(ctx context.Context, id int64, review Review) (*models.KYCSubmission, error)
}
