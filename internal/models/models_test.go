package models

import (
	"testing"
	"time"

	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateAmount(t *testing.T) {
	cases := map[string]struct {
		amount string
		err    error
	}{
		"positive":      {"150", nil},
		"two places":    {"10.25", nil},
		"zero":          {"0", pkgerrors.ErrInvalidAmount},
		"negative":      {"-5", pkgerrors.ErrInvalidAmount},
		"sub cent":      {"10.001", pkgerrors.ErrInvalidAmount},
		"trailing zero": {"10.500", nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tc.amount))
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestInvestmentPlan_CheckBounds(t *testing.T) {
	plan := &InvestmentPlan{
		MinAmount: decimal.NewFromInt(100),
		MaxAmount: decimal.NewNullDecimal(decimal.NewFromInt(5000)),
	}

	assert.ErrorIs(t, plan.CheckBounds(decimal.NewFromInt(50)), pkgerrors.ErrBelowMinimum)
	assert.ErrorIs(t, plan.CheckBounds(decimal.NewFromInt(6000)), pkgerrors.ErrAboveMaximum)
	assert.NoError(t, plan.CheckBounds(decimal.NewFromInt(100)))
	assert.NoError(t, plan.CheckBounds(decimal.NewFromInt(5000)))

	plan.MaxAmount = decimal.NullDecimal{}
	assert.NoError(t, plan.CheckBounds(decimal.NewFromInt(1_000_000)))
}

func TestInvestmentPlan_Validate(t *testing.T) {
	valid := InvestmentPlan{
		Name:           "Starter",
		ROIPercent:     decimal.NewFromInt(12),
		DurationMonths: 6,
		MinAmount:      decimal.NewFromInt(100),
		MaxAmount:      decimal.NewNullDecimal(decimal.NewFromInt(5000)),
		RiskLevel:      RiskLow,
	}
	assert.NoError(t, valid.Validate())

	noName := valid
	noName.Name = " "
	assert.ErrorIs(t, noName.Validate(), pkgerrors.ErrInvalidInput)

	inverted := valid
	inverted.MaxAmount = decimal.NewNullDecimal(decimal.NewFromInt(10))
	assert.ErrorIs(t, inverted.Validate(), pkgerrors.ErrInvalidInput)

	badRisk := valid
	badRisk.RiskLevel = "extreme"
	assert.ErrorIs(t, badRisk.Validate(), pkgerrors.ErrInvalidInput)

	noDuration := valid
	noDuration.DurationMonths = 0
	assert.ErrorIs(t, noDuration.Validate(), pkgerrors.ErrInvalidInput)
}

func TestMaturityDate(t *testing.T) {
	start := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.July, 15, 0, 0, 0, 0, time.UTC), MaturityDate(start, 6))

	// day of month overflows into the next month
	endOfJan := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC), MaturityDate(endOfJan, 1))

	assert.Equal(t, time.Date(2027, time.January, 15, 0, 0, 0, 0, time.UTC), MaturityDate(start, 12))
}

func TestCalendarDate(t *testing.T) {
	ts := time.Date(2026, time.October, 14, 23, 59, 1, 5, time.UTC)
	assert.Equal(t, time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC), CalendarDate(ts))
}

func TestStateGuards(t *testing.T) {
	assert.True(t, StatusPending.CanSettleTo(StatusCompleted))
	assert.True(t, StatusPending.CanSettleTo(StatusFailed))
	assert.False(t, StatusCompleted.CanSettleTo(StatusFailed))
	assert.False(t, StatusPending.CanSettleTo(StatusPending))

	assert.True(t, InvestmentActive.CanTransitionTo(InvestmentCompleted))
	assert.True(t, InvestmentActive.CanTransitionTo(InvestmentCancelled))
	assert.False(t, InvestmentCompleted.CanTransitionTo(InvestmentCancelled))
	assert.False(t, InvestmentActive.CanTransitionTo(InvestmentActive))

	status, ok := DecisionApprove.Outcome()
	assert.True(t, ok)
	assert.Equal(t, KYCStatusApproved, status)
	_, ok = KYCDecision("maybe").Outcome()
	assert.False(t, ok)

	assert.True(t, KindWithdraw.Valid())
	assert.False(t, TransactionKind("transfer").Valid())
}

func TestAllocationPercent(t *testing.T) {
	assert.False(t, ValidAllocationPercent(0))
	assert.True(t, ValidAllocationPercent(1))
	assert.True(t, ValidAllocationPercent(100))
	assert.False(t, ValidAllocationPercent(101))
}

func TestTransaction_Validate(t *testing.T) {
	valid := func() *Transaction {
		return &Transaction{
			UserID:   1,
			Kind:     KindBuy,
			Amount:   decimal.NewFromInt(500),
			Currency: "USD",
			Status:   StatusCompleted,
		}
	}

	var nilTx *Transaction
	assert.ErrorIs(t, nilTx.Validate(), pkgerrors.ErrNilTransaction)
	assert.NoError(t, valid().Validate())

	badKind := valid()
	badKind.Kind = "transfer"
	assert.ErrorIs(t, badKind.Validate(), pkgerrors.ErrInvalidTransactionType)

	badStatus := valid()
	badStatus.Status = "done"
	assert.ErrorIs(t, badStatus.Validate(), pkgerrors.ErrInvalidTransactionStatus)

	noCurrency := valid()
	noCurrency.Currency = ""
	assert.ErrorIs(t, noCurrency.Validate(), pkgerrors.ErrInvalidInput)

	zero := valid()
	zero.Amount = decimal.Zero
	assert.ErrorIs(t, zero.Validate(), pkgerrors.ErrInvalidAmount)
}
