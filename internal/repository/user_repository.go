package repository

import (
	"context"

	"github.com/honeynil/invest-ledger/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	SetKYCStatus(ctx context.Context, userID int64, status models.KYCStatus) error
}
