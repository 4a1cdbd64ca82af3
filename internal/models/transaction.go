package models

import (
	"strings"
	"time"

	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"user_id"`
	Kind        TransactionKind   `json:"kind"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Reference   string            `json:"reference,omitempty"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

type TransactionKind string

const (
	KindDeposit  TransactionKind = "deposit"
	KindWithdraw TransactionKind = "withdraw"
	KindBuy      TransactionKind = "buy"
	KindSell     TransactionKind = "sell"
	KindDividend TransactionKind = "dividend"
	KindFee      TransactionKind = "fee"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdraw, KindBuy, KindSell, KindDividend, KindFee:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusFailed
}

// CanSettleTo reports whether a pending transaction may move to next.
func (s TransactionStatus) CanSettleTo(next TransactionStatus) bool {
	return s == StatusPending && (next == StatusCompleted || next == StatusFailed)
}

// Validate checks the fields every log entry must carry.
func (t *Transaction) Validate() error {
	if t == nil {
		return pkgerrors.ErrNilTransaction
	}
	if !t.Kind.Valid() {
		return pkgerrors.ErrInvalidTransactionType
	}
	if !t.Status.Valid() {
		return pkgerrors.ErrInvalidTransactionStatus
	}
	if t.UserID <= 0 || strings.TrimSpace(t.Currency) == "" {
		return pkgerrors.ErrInvalidInput
	}
	if !t.Amount.IsPositive() {
		return pkgerrors.ErrInvalidAmount
	}
	return nil
}
