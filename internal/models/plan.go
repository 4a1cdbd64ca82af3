package models

import (
	"strings"
	"time"

	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/shopspring/decimal"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case "", RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

type InvestmentPlan struct {
	ID             int64               `json:"id"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	ROIPercent     decimal.Decimal     `json:"roi_percent"`
	DurationMonths int                 `json:"duration_months"`
	MinAmount      decimal.Decimal     `json:"min_amount"`
	MaxAmount      decimal.NullDecimal `json:"max_amount"`
	RiskLevel      RiskLevel           `json:"risk_level,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func (p *InvestmentPlan) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return pkgerrors.ErrInvalidInput
	case p.ROIPercent.IsNegative():
		return pkgerrors.ErrInvalidInput
	case p.DurationMonths < 1:
		return pkgerrors.ErrInvalidInput
	case !p.MinAmount.IsPositive():
		return pkgerrors.ErrInvalidInput
	case p.MaxAmount.Valid && p.MaxAmount.Decimal.LessThan(p.MinAmount):
		return pkgerrors.ErrInvalidInput
	case !p.RiskLevel.Valid():
		return pkgerrors.ErrInvalidInput
	}
	return nil
}

// CheckBounds validates amount against the plan's minimum and optional maximum.
func (p *InvestmentPlan) CheckBounds(amount decimal.Decimal) error {
	if amount.LessThan(p.MinAmount) {
		return pkgerrors.ErrBelowMinimum
	}
	if p.MaxAmount.Valid && amount.GreaterThan(p.MaxAmount.Decimal) {
		return pkgerrors.ErrAboveMaximum
	}
	return nil
}

// TraderProfile is the copy-trading catalog entry of a master trader.
type TraderProfile struct {
	ID            int64           `json:"id"`
	DisplayName   string          `json:"display_name"`
	MinCopyAmount decimal.Decimal `json:"min_copy_amount"`
	RiskLevel     RiskLevel       `json:"risk_level,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (t *TraderProfile) Validate() error {
	if t.ID <= 0 || strings.TrimSpace(t.DisplayName) == "" || t.MinCopyAmount.IsNegative() || !t.RiskLevel.Valid() {
		return pkgerrors.ErrInvalidInput
	}
	return nil
}
