// Package memory is an in-process Store. A unit of work runs on a private
// snapshot under the store lock and replaces the live state only on success,
// which makes every WithinTx call serializable.
package memory

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/honeynil/invest-ledger/internal/models"
	"github.com/honeynil/invest-ledger/internal/repository"
)

type data struct {
	users        map[int64]models.User
	usernames    map[string]int64
	wallets      map[int64]models.Wallet
	transactions map[int64]models.Transaction
	plans        map[int64]models.InvestmentPlan
	traders      map[int64]models.TraderProfile
	investments  map[int64]models.OngoingInvestment
	copies       map[int64]models.CopyRelationship
	kyc          map[int64]models.KYCSubmission
	seq          map[string]int64
}

func newData() *data {
	return &data{
		users:        make(map[int64]models.User),
		usernames:    make(map[string]int64),
		wallets:      make(map[int64]models.Wallet),
		transactions: make(map[int64]models.Transaction),
		plans:        make(map[int64]models.InvestmentPlan),
		traders:      make(map[int64]models.TraderProfile),
		investments:  make(map[int64]models.OngoingInvestment),
		copies:       make(map[int64]models.CopyRelationship),
		kyc:          make(map[int64]models.KYCSubmission),
		seq:          make(map[string]int64),
	}
}

func (d *data) clone() *data {
	return &data{
		users:        maps.Clone(d.users),
		usernames:    maps.Clone(d.usernames),
		wallets:      maps.Clone(d.wallets),
		transactions: maps.Clone(d.transactions),
		plans:        maps.Clone(d.plans),
		traders:      maps.Clone(d.traders),
		investments:  maps.Clone(d.investments),
		copies:       maps.Clone(d.copies),
		kyc:          maps.Clone(d.kyc),
		seq:          maps.Clone(d.seq),
	}
}

func (d *data) next(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

type Store struct {
	mu   sync.Mutex
	data *data
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{data: newData(), now: time.Now}
}

func (s *Store) Repositories() repository.Repositories {
	return repositoriesFor(view{store: s})
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.data.clone()
	if err := fn(ctx, repositoriesFor(view{store: s, tx: snapshot})); err != nil {
		slog.Debug("memory unit of work rolled back", "error", err)
		return err
	}
	s.data = snapshot
	return nil
}

func (s *Store) Close() error {
	return nil
}

// view resolves which state a repository call works on: the private snapshot
// of a running unit of work, or the live state under the store lock.
type view struct {
	store *Store
	tx    *data
}

func (v view) acquire() (*data, func()) {
	if v.tx != nil {
		return v.tx, func() {}
	}
	v.store.mu.Lock()
	return v.store.data, v.store.mu.Unlock
}

func (v view) now() time.Time {
	return v.store.now().UTC()
}

func repositoriesFor(v view) repository.Repositories {
	return repository.Repositories{
		Users:        &userRepository{v},
		Wallets:      &walletRepository{v},
		Transactions: &transactionRepository{v},
		Plans:        &planRepository{v},
		Traders:      &traderRepository{v},
		Investments:  &investmentRepository{v},
		Copies:       &copyRepository{v},
		KYC:          &kycRepository{v},
	}
}
