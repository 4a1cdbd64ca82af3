package service

import (
	"context"
	"sync"
	"testing"

	"github.com/honeynil/invest-ledger/internal/models"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passport() KYCSubmissionInput {
	return KYCSubmissionInput{
		FullName:       " Alice Liddell ",
		Nationality:    "GB",
		DocumentType:   models.DocumentPassport,
		DocumentNumber: "P1234567",
		DocumentRefs:   []string{"uploads/passport-front.jpg"},
	}
}

func kycStatus(t *testing.T, f *fixture, userID int64) models.KYCStatus {
	t.Helper()
	u, err := f.store.Repositories().Users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	return u.KYCStatus
}

func TestKYCService_Submit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("pending submission marks the user", func(t *testing.T) {
		p := f.user(t, "alice", "0")
		sub, err := f.kyc.Submit(ctx, p, passport())
		require.NoError(t, err)
		assert.Equal(t, models.KYCStatusPending, sub.Status)
		assert.Equal(t, "Alice Liddell", sub.FullName)
		assert.Equal(t, models.KYCStatusPending, kycStatus(t, f, p.ID))

		latest, err := f.kyc.GetLatest(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, latest.ID)

		_, err = f.kyc.Submit(ctx, p, passport())
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransition)
	})

	t.Run("invalid input", func(t *testing.T) {
		p := f.user(t, "bob", "0")
		cases := map[string]func(in *KYCSubmissionInput){
			"no name":          func(in *KYCSubmissionInput) { in.FullName = "  " },
			"no document":      func(in *KYCSubmissionInput) { in.DocumentNumber = "" },
			"unknown document": func(in *KYCSubmissionInput) { in.DocumentType = "library_card" },
			"no files":         func(in *KYCSubmissionInput) { in.DocumentRefs = nil },
		}
		for name, mutate := range cases {
			in := passport()
			mutate(&in)
			_, err := f.kyc.Submit(ctx, p, in)
			assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput, name)
		}
		assert.Equal(t, models.KYCStatusNone, kycStatus(t, f, p.ID))
	})

	t.Run("nothing submitted yet", func(t *testing.T) {
		p := f.user(t, "carol", "0")
		_, err := f.kyc.GetLatest(ctx, p)
		assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
	})
}

func TestKYCService_Review(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("approve", func(t *testing.T) {
		p := f.user(t, "alice", "0")
		sub, err := f.kyc.Submit(ctx, p, passport())
		require.NoError(t, err)

		reviewed, err := f.kyc.Approve(ctx, admin, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, models.KYCStatusApproved, reviewed.Status)
		require.NotNil(t, reviewed.ReviewedBy)
		assert.Equal(t, admin.ID, *reviewed.ReviewedBy)
		assert.NotNil(t, reviewed.ReviewedAt)
		assert.Empty(t, reviewed.RejectionReason)
		assert.Equal(t, models.KYCStatusApproved, kycStatus(t, f, p.ID))

		_, err = f.kyc.Reject(ctx, admin, sub.ID, "too late")
		assert.ErrorIs(t, err, pkgerrors.ErrAlreadyReviewed)

		// approved users cannot submit again
		_, err = f.kyc.Submit(ctx, p, passport())
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransition)
	})

	t.Run("reject allows resubmission", func(t *testing.T) {
		p := f.user(t, "bob", "0")
		sub, err := f.kyc.Submit(ctx, p, passport())
		require.NoError(t, err)

		reviewed, err := f.kyc.Reject(ctx, admin, sub.ID, "blurry scan")
		require.NoError(t, err)
		assert.Equal(t, models.KYCStatusRejected, reviewed.Status)
		assert.Equal(t, "blurry scan", reviewed.RejectionReason)
		assert.Equal(t, models.KYCStatusRejected, kycStatus(t, f, p.ID))

		again, err := f.kyc.Submit(ctx, p, passport())
		require.NoError(t, err)
		assert.NotEqual(t, sub.ID, again.ID)
		assert.Equal(t, models.KYCStatusPending, kycStatus(t, f, p.ID))
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		p := f.user(t, "carol", "0")
		sub, err := f.kyc.Submit(ctx, p, passport())
		require.NoError(t, err)

		_, err = f.kyc.Approve(ctx, p, sub.ID)
		assert.ErrorIs(t, err, pkgerrors.ErrForbidden)
		_, err = f.kyc.ListByStatus(ctx, p, models.KYCStatusPending)
		assert.ErrorIs(t, err, pkgerrors.ErrForbidden)
		assert.Equal(t, models.KYCStatusPending, kycStatus(t, f, p.ID))
	})

	t.Run("unknown submission or decision", func(t *testing.T) {
		_, err := f.kyc.Approve(ctx, admin, 999)
		assert.ErrorIs(t, err, pkgerrors.ErrSubmissionNotFound)

		_, err = f.kyc.Review(ctx, admin, 1, "maybe", "")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}

func TestKYCService_ListByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice", "0")
	bob := f.user(t, "bob", "0")
	first, err := f.kyc.Submit(ctx, alice, passport())
	require.NoError(t, err)
	second, err := f.kyc.Submit(ctx, bob, passport())
	require.NoError(t, err)
	_, err = f.kyc.Approve(ctx, admin, second.ID)
	require.NoError(t, err)

	pending, err := f.kyc.ListByStatus(ctx, admin, "")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	approved, err := f.kyc.ListByStatus(ctx, admin, models.KYCStatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, second.ID, approved[0].ID)

	_, err = f.kyc.ListByStatus(ctx, admin, models.KYCStatusNone)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
}

func TestKYCService_ConcurrentReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.user(t, "alice", "0")
	sub, err := f.kyc.Submit(ctx, p, passport())
	require.NoError(t, err)

	decisions := []models.KYCDecision{models.DecisionApprove, models.DecisionReject}
	errs := make([]error, len(decisions))
	var wg sync.WaitGroup
	for i, decision := range decisions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.kyc.Review(ctx, admin, sub.ID, decision, "duplicate")
		}()
	}
	wg.Wait()

	var ok, reviewed int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, pkgerrors.ErrAlreadyReviewed):
			reviewed++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, reviewed)

	latest, err := f.kyc.GetLatest(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, latest.Status, kycStatus(t, f, p.ID))
}
