package repository

import (
	"context"

	"github.com/honeynil/invest-ledger/internal/models"
)

type InvestmentRepository interface {
	Create(ctx context.Context, inv *models.OngoingInvestment) error
	// GetForUser only returns investments owned by userID.
	GetForUser(ctx context.Context, userID, id int64) (*models.OngoingInvestment, error)
	ListByUser(ctx context.Context, userID int64) ([]models.OngoingInvestment, error)
	// Close performs the one-way transition of an active investment to a terminal status.
	Close(ctx context.Context, id int64, status models.InvestmentStatus) (*models.OngoingInvestment, error)
}

type CopyRepository interface {
	Create(ctx context.Context, rel *models.CopyRelationship) error
	ListByCopier(ctx context.Context, copierID int64) ([]models.CopyRelationship, error)
}
