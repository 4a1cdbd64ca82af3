package models

import (
	"time"

	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits a monetary amount may carry.
const MoneyPlaces = 2

type Wallet struct {
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ValidateAmount rejects zero, negative and sub-cent amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(MoneyPlaces)) {
		return pkgerrors.ErrInvalidAmount
	}
	return nil
}
