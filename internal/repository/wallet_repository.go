package repository

import (
	"context"

	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// WalletRepository owns the single mutable balance of each user.
// Debit must check and subtract in one step; it never lets a balance go below zero.
type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByUserID(ctx context.Context, userID int64) (*models.Wallet, error)
	Debit(ctx context.Context, userID int64, amount decimal.Decimal) (newBalance decimal.Decimal, err error)
	Credit(ctx context.Context, userID int64, amount decimal.Decimal) (newBalance decimal.Decimal, err error)
}
