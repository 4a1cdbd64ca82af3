package repository

import "context"

// Repositories groups every repository bound to the same connection or transaction.
type Repositories struct {
	Users        UserRepository
	Wallets      WalletRepository
	Transactions TransactionRepository
	Plans        PlanRepository
	Traders      TraderRepository
	Investments  InvestmentRepository
	Copies       CopyRepository
	KYC          KYCRepository
}

// Store is the durable-store collaborator. Reads go through Repositories;
// every multi-step mutation runs inside WithinTx and commits or rolls back as a whole.
type Store interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Close() error
}
