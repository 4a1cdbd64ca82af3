package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/honeynil/invest-ledger/internal/models"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
)

type investmentRepository struct{ view }

func (r *investmentRepository) Create(ctx context.Context, inv *models.OngoingInvestment) error {
	d, release := r.acquire()
	defer release()

	inv.ID = d.next("investments")
	inv.CreatedAt = r.now()
	d.investments[inv.ID] = *inv
	return nil
}

func (r *investmentRepository) GetForUser(ctx context.Context, userID, id int64) (*models.OngoingInvestment, error) {
	d, release := r.acquire()
	defer release()

	inv, ok := d.investments[id]
	if !ok || inv.UserID != userID {
		return nil, pkgerrors.ErrInvestmentNotFound
	}
	return &inv, nil
}

func (r *investmentRepository) ListByUser(ctx context.Context, userID int64) ([]models.OngoingInvestment, error) {
	d, release := r.acquire()
	defer release()

	var out []models.OngoingInvestment
	for _, inv := range d.investments {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	slices.SortFunc(out, func(a, b models.OngoingInvestment) int {
		if c := b.StartDate.Compare(a.StartDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *investmentRepository) Close(ctx context.Context, id int64, status models.InvestmentStatus) (*models.OngoingInvestment, error) {
	d, release := r.acquire()
	defer release()

	inv, ok := d.investments[id]
	if !ok {
		return nil, pkgerrors.ErrInvestmentNotFound
	}
	if !inv.Status.CanTransitionTo(status) {
		return nil, pkgerrors.ErrInvalidTransition
	}
	inv.Status = status
	d.investments[id] = inv
	return &inv, nil
}

type copyRepository struct{ view }

func (r *copyRepository) Create(ctx context.Context, rel *models.CopyRelationship) error {
	d, release := r.acquire()
	defer release()

	rel.ID = d.next("copies")
	d.copies[rel.ID] = *rel
	return nil
}

func (r *copyRepository) ListByCopier(ctx context.Context, copierID int64) ([]models.CopyRelationship, error) {
	d, release := r.acquire()
	defer release()

	var out []models.CopyRelationship
	for _, rel := range d.copies {
		if rel.CopierID == copierID {
			out = append(out, rel)
		}
	}
	slices.SortFunc(out, func(a, b models.CopyRelationship) int {
		if c := b.StartDate.Compare(a.StartDate); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}
