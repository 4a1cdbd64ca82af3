package service

import (
	"context"
	"testing"
	"time"

	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	admin    = models.Principal{ID: 1000, Role: models.RoleAdmin}
	clock    = time.Date(2025, time.January, 31, 15, 4, 5, 0, time.UTC)
	fixedNow = func() time.Time { return clock }
)

type fixture struct {
	store        *memory.Store
	auth         *authService
	wallets      *walletService
	transactions *transactionService
	catalog      *catalogService
	investments  *investmentService
	copies       *copyTradingService
	withdrawals  *withdrawalService
	kyc          *kycService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:        store,
		auth:         NewAuthService(store, nil, "secret", time.Hour, "USD"),
		wallets:      NewWalletService(store, nil),
		transactions: NewTransactionService(store),
		catalog:      NewCatalogService(store, nil, time.Hour),
		investments:  NewInvestmentService(store, nil),
		copies:       NewCopyTradingService(store, nil),
		withdrawals:  NewWithdrawalService(store, nil),
		kyc:          NewKYCService(store, nil),
	}
	f.auth.bcryptCost = bcrypt.MinCost
	f.auth.now = fixedNow
	f.wallets.now = fixedNow
	f.investments.now = fixedNow
	f.copies.now = fixedNow
	f.withdrawals.now = fixedNow
	return f
}

// user registers a user and funds the wallet through the back-office credit.
func (f *fixture) user(t *testing.T, name, balance string) models.Principal {
	t.Helper()
	ctx := context.Background()
	u, err := f.auth.Register(ctx, name, "password")
	require.NoError(t, err)
	p := models.Principal{ID: u.ID, Role: u.Role}

	if amount := decimal.RequireFromString(balance); amount.IsPositive() {
		_, err = f.wallets.Credit(ctx, admin, u.ID, amount, "Initial deposit")
		require.NoError(t, err)
	}
	return p
}

func (f *fixture) balance(t *testing.T, p models.Principal) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.GetBalance(context.Background(), p)
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) history(t *testing.T, p models.Principal, kind string) []models.Transaction {
	t.Helper()
	txs, err := f.transactions.List(context.Background(), p, kind)
	require.NoError(t, err)
	return txs
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
