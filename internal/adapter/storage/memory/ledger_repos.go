package memory

import (
	"context"
	"math"

	"bank-ledger/internal/core/domain"
	"bank-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository over a Store.
type AccountRepo struct {
	store *Store
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(store *Store) *AccountRepo {
	return &AccountRepo{store: store}
}

// GetByOwner returns the committed account of ownerID, or nil.
func (r *AccountRepo) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	acc, ok := r.store.accounts[ownerID]
	if !ok {
		return nil, nil
	}
	return &acc, nil
}

// Credit adds amount to ownerID, creating the account with accountType if absent.
func (r *AccountRepo) Credit(ctx context.Context, tx pgx.Tx, ownerID string, accountType domain.AccountType, amount int64) (*domain.Account, error) {
	mt, err := openTx(tx)
	if err != nil {
		return nil, err
	}

	at := now()
	acc, ok := mt.account(ownerID)
	if !ok {
		acc = domain.Account{OwnerID: ownerID, AccountType: accountType, CreatedAt: at}
	}
	if acc.Balance > math.MaxInt64-amount {
		return nil, domain.ErrBalanceOverflow
	}
	acc.Balance += amount
	acc.UpdatedAt = at
	mt.accounts[ownerID] = acc
	return &acc, nil
}

// Debit subtracts amount from ownerID when the balance covers it; otherwise nil, nil.
func (r *AccountRepo) Debit(ctx context.Context, tx pgx.Tx, ownerID string, amount int64) (*domain.Account, error) {
	mt, err := openTx(tx)
	if err != nil {
		return nil, err
	}

	acc, ok := mt.account(ownerID)
	if !ok || !acc.CanDebit(amount) {
		return nil, nil
	}
	acc.Balance -= amount
	acc.UpdatedAt = now()
	mt.accounts[ownerID] = acc
	return &acc, nil
}

// StatementRepo implements ports.StatementRepository over a Store.
type StatementRepo struct {
	store *Store
}

// NewStatementRepo creates a new StatementRepo.
func NewStatementRepo(store *Store) *StatementRepo {
	return &StatementRepo{store: store}
}

// Create stages entry for the transaction's commit.
func (r *StatementRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.StatementEntry) error {
	mt, err := openTx(tx)
	if err != nil {
		return err
	}
	mt.entries = append(mt.entries, *entry)
	return nil
}

// List returns one page of the owner's entries in reverse commit order.
func (r *StatementRepo) List(ctx context.Context, params ports.StatementListParams) ([]domain.StatementEntry, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := r.store.entries[params.OwnerID]
	total := int64(len(all))

	offset := params.Offset()
	if offset < 0 {
		return nil, 0, domain.ErrPageOutOfRange
	}
	page := make([]domain.StatementEntry, 0, params.PageSize)
	for i := len(all) - 1 - offset; i >= 0 && len(page) < params.PageSize; i-- {
		page = append(page, all[i])
	}
	return page, total, nil
}

// IdempotencyRepo implements ports.IdempotencyRepository over a Store.
type IdempotencyRepo struct {
	store *Store
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(store *Store) *IdempotencyRepo {
	return &IdempotencyRepo{store: store}
}

// Create stages rec. A key already committed or staged yields domain.ErrDuplicateKey.
func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	mt, err := openTx(tx)
	if err != nil {
		return err
	}
	if mt.hasRecord(rec.Key) {
		return domain.ErrDuplicateKey
	}
	if mt.records == nil {
		mt.records = make(map[string]domain.IdempotencyRecord)
	}
	mt.records[rec.Key] = *rec
	return nil
}

// Get returns the committed record for key, or nil.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rec, ok := r.store.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
