package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/honeynil/invest-ledger/internal/infrastructure/observability"
	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

type KYCSubmissionInput struct {
	FullName       string
	DateOfBirth    *time.Time
	Nationality    string
	Address        string
	DocumentType   models.DocumentType
	DocumentNumber string
	DocumentRefs   []string
}

type KYCService interface {
	Submit(ctx context.Context, p models.Principal, in KYCSubmissionInput) (*models.KYCSubmission, error)
	GetLatest(ctx context.Context, p models.Principal) (*models.KYCSubmission, error)
	ListByStatus(ctx context.Context, p models.Principal, status models.KYCStatus) ([]models.KYCSubmission, error)
	Approve(ctx context.Context, p models.Principal, submissionID int64) (*models.KYCSubmission, error)
	Reject(ctx context.Context, p models.Principal, submissionID int64, reason string) (*models.KYCSubmission, error)
	Review(ctx context.Context, p models.Principal, submissionID int64, decision models.KYCDecision, reason string) (*models.KYCSubmission, error)
}

type kycService struct {
	store  repository.Store
	events *EventPublisher
}

func NewKYCService(store repository.Store, events *EventPublisher) *kycService {
	return &kycService{store: store, events: events}
}

func (s *kycService) Submit(ctx context.Context, p models.Principal, in KYCSubmissionInput) (_ *models.KYCSubmission, err error) {
	ctx, done := startOperation(ctx, "SubmitKYC", attribute.Int64("user_id", p.ID))
	defer func() { done(err) }()

	sub := &models.KYCSubmission{
		UserID:         p.ID,
		FullName:       strings.TrimSpace(in.FullName),
		DateOfBirth:    in.DateOfBirth,
		Nationality:    strings.TrimSpace(in.Nationality),
		Address:        strings.TrimSpace(in.Address),
		DocumentType:   in.DocumentType,
		DocumentNumber: strings.TrimSpace(in.DocumentNumber),
		DocumentRefs:   in.DocumentRefs,
	}
	if err = sub.Validate(); err != nil {
		logOutcome(ctx, "invalid kyc submission", err, "user_id", p.ID)
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if user.KYCStatus == models.KYCStatusPending || user.KYCStatus == models.KYCStatusApproved {
			return pkgerrors.ErrInvalidTransition
		}
		latest, err := repos.KYC.GetLatestByUser(ctx, p.ID)
		switch {
		case err == nil && latest.Status == models.KYCStatusPending:
			return pkgerrors.ErrInvalidTransition
		case err != nil && !stderrors.Is(err, pkgerrors.ErrNotFound):
			return err
		}

		if err := repos.KYC.Create(ctx, sub); err != nil {
			return err
		}
		return repos.Users.SetKYCStatus(ctx, p.ID, models.KYCStatusPending)
	})
	if err != nil {
		logOutcome(ctx, "kyc submission rejected", err, "user_id", p.ID)
		return nil, err
	}

	observability.WithContext(ctx).Info("kyc submitted", "user_id", p.ID, "submission_id", sub.ID, "document_type", sub.DocumentType)
	return sub, nil
}

func (s *kycService) GetLatest(ctx context.Context, p models.Principal) (_ *models.KYCSubmission, err error) {
	ctx, done := startOperation(ctx, "GetLatestKYC", attribute.Int64("user_id", p.ID))
	defer func() { done(err) }()

	sub, err := s.store.Repositories().KYC.GetLatestByUser(ctx, p.ID)
	if err != nil {
		logOutcome(ctx, "failed to get kyc submission", err, "user_id", p.ID)
		return nil, err
	}
	return sub, nil
}

func (s *kycService) ListByStatus(ctx context.Context, p models.Principal, status models.KYCStatus) (_ []models.KYCSubmission, err error) {
	ctx, done := startOperation(ctx, "ListKYC", attribute.String("status", string(status)))
	defer func() { done(err) }()

	if err = requireAdmin(ctx, p, "ListKYC"); err != nil {
		return nil, err
	}
	if status == "" {
		status = models.KYCStatusPending
	}
	if status != models.KYCStatusPending && !status.Terminal() {
		return nil, pkgerrors.ErrInvalidInput
	}

	subs, err := s.store.Repositories().KYC.ListByStatus(ctx, status)
	if err != nil {
		logOutcome(ctx, "failed to list kyc submissions", err, "status", status)
		return nil, err
	}
	return subs, nil
}

func (s *kycService) Approve(ctx context.Context, p models.Principal, submissionID int64) (*models.KYCSubmission, error) {
	return s.Review(ctx, p, submissionID, models.DecisionApprove, "")
}

func (s *kycService) Reject(ctx context.Context, p models.Principal, submissionID int64, reason string) (*models.KYCSubmission, error) {
	return s.Review(ctx, p, submissionID, models.DecisionReject, reason)
}

// Review is one-shot: the pending check and the write are a single
// conditional update, and the user's verification flag follows in the same unit.
func (s *kycService) Review(ctx context.Context, p models.Principal, submissionID int64, decision models.KYCDecision, reason string) (_ *models.KYCSubmission, err error) {
	ctx, done := startOperation(ctx, "ReviewKYC",
		attribute.Int64("submission_id", submissionID),
		attribute.Int64("reviewer_id", p.ID),
		attribute.String("decision", string(decision)))
	defer func() { done(err) }()

	if err = requireAdmin(ctx, p, "ReviewKYC"); err != nil {
		return nil, err
	}
	status, ok := decision.Outcome()
	if !ok {
		observability.WithContext(ctx).Warn("unknown kyc decision", "submission_id", submissionID, "decision", decision)
		return nil, pkgerrors.ErrInvalidInput
	}
	if status == models.KYCStatusApproved {
		reason = ""
	}

	var sub *models.KYCSubmission
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		sub, err = repos.KYC.Review(ctx, submissionID, repository.Review{
			Status:          status,
			ReviewerID:      p.ID,
			RejectionReason: strings.TrimSpace(reason),
		})
		if err != nil {
			return err
		}
		return repos.Users.SetKYCStatus(ctx, sub.UserID, status)
	})
	if err != nil {
		logOutcome(ctx, "kyc review rejected", err, "submission_id", submissionID, "reviewer_id", p.ID)
		return nil, err
	}

	observability.WithContext(ctx).Info("kyc reviewed",
		"submission_id", submissionID,
		"user_id", sub.UserID,
		"reviewer_id", p.ID,
		"status", status)
	s.events.Publish(ctx, EventKYCReviewed, sub.UserID, sub)
	return sub, nil
}
