package repository

import (
	"context"

	"github.com/honeynil/invest-ledger/internal/models"
)

type TransactionRepository interface {
	Append(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id int64) (*models.Transaction, error)
	// ListByUser returns the most recent entries first. A nil kind lists every kind.
	ListByUser(ctx context.Context, userID int64, kind *models.TransactionKind) ([]models.Transaction, error)
	// SettleWithdrawal moves a pending withdrawal to a final status.
	SettleWithdrawal(ctx context.Context, id int64, status models.TransactionStatus) error
}
