package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
	InvestmentCancelled InvestmentStatus = "cancelled"
)

func (s InvestmentStatus) Terminal() bool {
	return s == InvestmentCompleted || s == InvestmentCancelled
}

func (s InvestmentStatus) CanTransitionTo(next InvestmentStatus) bool {
	return s == InvestmentActive && next.Terminal()
}

// OngoingInvestment keeps the plan name and ROI as they were at purchase time.
type OngoingInvestment struct {
	ID               int64               `json:"id"`
	UserID           int64               `json:"user_id"`
	PlanID           int64               `json:"plan_id"`
	PlanName         string              `json:"plan_name"`
	Amount           decimal.Decimal     `json:"amount"`
	ROIPercent       decimal.Decimal     `json:"roi_percent"`
	StartDate        time.Time           `json:"start_date"`
	EndDate          time.Time           `json:"end_date"`
	Status           InvestmentStatus    `json:"status"`
	AccruedProfit    decimal.Decimal     `json:"accrued_profit"`
	NextPayoutDate   *time.Time          `json:"next_payout_date,omitempty"`
	NextPayoutAmount decimal.NullDecimal `json:"next_payout_amount"`
	CreatedAt        time.Time           `json:"created_at"`
}

// CalendarDate truncates t to midnight UTC of its calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MaturityDate adds months to start, letting the day of month overflow into
// the following month the way calendar normalisation does (Jan 31 + 1 = Mar 3).
func MaturityDate(start time.Time, months int) time.Time {
	return start.AddDate(0, months, 0)
}
