package service

import (
	"context"

	"github.com/honeynil/invest-ledger/internal/models"
)

// Settlement adapts the back-office consumer to the ledger services.
type Settlement struct {
	Withdrawals WithdrawalService
	Investments InvestmentService
}

func (s Settlement) SettleWithdrawal(ctx context.Context, transactionID int64, status models.TransactionStatus) error {
	return s.Withdrawals.Settle(ctx, transactionID, status)
}

func (s Settlement) CloseInvestment(ctx context.Context, investmentID int64, status models.InvestmentStatus) error {
	_, err := s.Investments.Close(ctx, investmentID, status)
	return err
}
