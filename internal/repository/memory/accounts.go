package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/honeynil/invest-ledger/internal/models"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"github.com/shopspring/decimal"
)

type userRepository struct{ view }

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	d, release := r.acquire()
	defer release()

	if user == nil || user.Username == "" || user.PasswordHash == "" {
		return pkgerrors.ErrInvalidInput
	}
	if _, taken := d.usernames[user.Username]; taken {
		return pkgerrors.ErrUsernameExists
	}
	user.ID = d.next("users")
	user.CreatedAt = r.now()
	d.users[user.ID] = *user
	d.usernames[user.Username] = user.ID
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	d, release := r.acquire()
	defer release()

	user, ok := d.users[id]
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	d, release := r.acquire()
	defer release()

	id, ok := d.usernames[username]
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}
	user := d.users[id]
	return &user, nil
}

func (r *userRepository) SetKYCStatus(ctx context.Context, userID int64, status models.KYCStatus) error {
	d, release := r.acquire()
	defer release()

	user, ok := d.users[userID]
	if !ok {
		return pkgerrors.ErrUserNotFound
	}
	user.KYCStatus = status
	d.users[userID] = user
	return nil
}

type walletRepository struct{ view }

func (r *walletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	d, release := r.acquire()
	defer release()

	if wallet == nil || wallet.UserID <= 0 || wallet.Currency == "" {
		return pkgerrors.ErrInvalidInput
	}
	if _, exists := d.wallets[wallet.UserID]; exists {
		return pkgerrors.ErrInvalidInput
	}
	now := r.now()
	wallet.Balance = decimal.Zero
	wallet.CreatedAt = now
	wallet.UpdatedAt = now
	d.wallets[wallet.UserID] = *wallet
	return nil
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID int64) (*models.Wallet, error) {
	d, release := r.acquire()
	defer release()

	wallet, ok := d.wallets[userID]
	if !ok {
		return nil, pkgerrors.ErrWalletNotFound
	}
	return &wallet, nil
}

func (r *walletRepository) Debit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	d, release := r.acquire()
	defer release()

	wallet, ok := d.wallets[userID]
	if !ok {
		return decimal.Zero, pkgerrors.ErrWalletNotFound
	}
	if wallet.Balance.LessThan(amount) {
		return wallet.Balance, pkgerrors.ErrInsufficientFunds
	}
	wallet.Balance = wallet.Balance.Sub(amount)
	wallet.UpdatedAt = r.now()
	d.wallets[userID] = wallet
	return wallet.Balance, nil
}

func (r *walletRepository) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	d, release := r.acquire()
	defer release()

	wallet, ok := d.wallets[userID]
	if !ok {
		return decimal.Zero, pkgerrors.ErrWalletNotFound
	}
	wallet.Balance = wallet.Balance.Add(amount)
	wallet.UpdatedAt = r.now()
	d.wallets[userID] = wallet
	return wallet.Balance, nil
}

type transactionRepository struct{ view }

func (r *transactionRepository) Append(ctx context.Context, tx *models.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	d, release := r.acquire()
	defer release()

	tx.ID = d.next("transactions")
	tx.CreatedAt = r.now()
	d.transactions[tx.ID] = *tx
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	d, release := r.acquire()
	defer release()

	tx, ok := d.transactions[id]
	if !ok {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	return &tx, nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID int64, kind *models.TransactionKind) ([]models.Transaction, error) {
	d, release := r.acquire()
	defer release()

	var out []models.Transaction
	for _, tx := range d.transactions {
		if tx.UserID != userID || (kind != nil && tx.Kind != *kind) {
			continue
		}
		out = append(out, tx)
	}
	slices.SortFunc(out, func(a, b models.Transaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *transactionRepository) SettleWithdrawal(ctx context.Context, id int64, status models.TransactionStatus) error {
	if !models.StatusPending.CanSettleTo(status) {
		return pkgerrors.ErrInvalidTransactionStatus
	}

	d, release := r.acquire()
	defer release()

	tx, ok := d.transactions[id]
	if !ok || tx.Kind != models.KindWithdraw {
		return pkgerrors.ErrTransactionNotFound
	}
	if !tx.Status.CanSettleTo(status) {
		return pkgerrors.ErrInvalidTransition
	}
	tx.Status = status
	d.transactions[id] = tx
	return nil
}
