package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
)

type kycRepository struct{ view }

func (r *kycRepository) Create(ctx context.Context, sub *models.KYCSubmission) error {
	d, release := r.acquire()
	defer release()

	sub.ID = d.next("kyc")
	sub.Status = models.KYCStatusPending
	sub.SubmittedAt = r.now()
	sub.DocumentRefs = slices.Clone(sub.DocumentRefs)
	d.kyc[sub.ID] = *sub
	return nil
}

func (r *kycRepository) GetByID(ctx context.Context, id int64) (*models.KYCSubmission, error) {
	d, release := r.acquire()
	defer release()

	sub, ok := d.kyc[id]
	if !ok {
		return nil, pkgerrors.ErrSubmissionNotFound
	}
	return detached(sub), nil
}

func (r *kycRepository) GetLatestByUser(ctx context.Context, userID int64) (*models.KYCSubmission, error) {
	d, release := r.acquire()
	defer release()

	var latest *models.KYCSubmission
	for _, sub := range d.kyc {
		if sub.UserID != userID {
			continue
		}
		if latest == nil || sub.ID > latest.ID {
			latest = detached(sub)
		}
	}
	if latest == nil {
		return nil, pkgerrors.ErrSubmissionNotFound
	}
	return latest, nil
}

func (r *kycRepository) ListByStatus(ctx context.Context, status models.KYCStatus) ([]models.KYCSubmission, error) {
	d, release := r.acquire()
	defer release()

	var out []models.KYCSubmission
	for _, sub := range d.kyc {
		if sub.Status == status {
			out = append(out, *detached(sub))
		}
	}
	slices.SortFunc(out, func(a, b models.KYCSubmission) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *kycRepository) Review(ctx context.Context, id int64, review repository.Review) (*models.KYCSubmission, error) {
	d, release := r.acquire()
	defer release()

	sub, ok := d.kyc[id]
	if !ok {
		return nil, pkgerrors.ErrSubmissionNotFound
	}
	if sub.Status != models.KYCStatusPending {
		return nil, pkgerrors.ErrAlreadyReviewed
	}
	reviewedAt := r.now()
	reviewer := review.ReviewerID
	sub.Status = review.Status
	sub.RejectionReason = review.RejectionReason
	sub.ReviewedAt = &reviewedAt
	sub.ReviewedBy = &reviewer
	d.kyc[id] = sub
	return detached(sub), nil
}

// detached копирует DocumentRefs, чтобы вызывающий не менял состояние стора.
func detached(sub models.KYCSubmission) *models.KYCSubmission {
	sub.DocumentRefs = slices.Clone(sub.DocumentRefs)
	return &sub
}
