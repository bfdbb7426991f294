package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"bank-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrForeignTx is returned when a repository receives a transaction it did not open.
var ErrForeignTx = errors.New("memory: transaction was not opened by this store")

// Store is an in-process ledger backend. Transactions are serialized: only one
// is open at a time and its writes become visible on Commit.
type Store struct {
	sem chan struct{} // held by the open transaction

	mu       sync.RWMutex // guards committed ledger state
	accounts map[string]domain.Account
	entries  map[string][]domain.StatementEntry
	records  map[string]domain.IdempotencyRecord

	userMu sync.RWMutex
	users  map[uuid.UUID]domain.User
	emails map[string]uuid.UUID

	auditMu sync.Mutex
	audits  []domain.AuditLog
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		sem:      make(chan struct{}, 1),
		accounts: make(map[string]domain.Account),
		entries:  make(map[string][]domain.StatementEntry),
		records:  make(map[string]domain.IdempotencyRecord),
		users:    make(map[uuid.UUID]domain.User),
		emails:   make(map[string]uuid.UUID),
	}
}

// Begin waits until no other transaction is open, or ctx is done.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &memTx{
		store:    s,
		accounts: make(map[string]domain.Account),
	}, nil
}

// memTx stages writes until Commit. Only Commit and Rollback are supported
// from pgx.Tx; the repositories of this package do the actual work.
type memTx struct {
	pgx.Tx

	store    *Store
	accounts map[string]domain.Account
	entries  []domain.StatementEntry
	records  map[string]domain.IdempotencyRecord
	done     bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	defer t.release()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for owner, acc := range t.accounts {
		s.accounts[owner] = acc
	}
	for _, e := range t.entries {
		s.entries[e.OwnerID] = append(s.entries[e.OwnerID], e)
	}
	for key, rec := range t.records {
		s.records[key] = rec
	}
	return nil
}

// Rollback discards staged writes. It is a no-op once the transaction is closed.
func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.release()
	return nil
}

func (t *memTx) release() {
	<-t.store.sem
}

// account returns the staged or committed account of owner.
func (t *memTx) account(owner string) (domain.Account, bool) {
	if acc, ok := t.accounts[owner]; ok {
		return acc, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	acc, ok := t.store.accounts[owner]
	return acc, ok
}

func (t *memTx) hasRecord(key string) bool {
	if _, ok := t.records[key]; ok {
		return true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	_, ok := t.store.records[key]
	return ok
}

func openTx(tx pgx.Tx) (*memTx, error) {
	mt, ok := tx.(*memTx)
	if !ok {
		return nil, ErrForeignTx
	}
	if mt.done {
		return nil, pgx.ErrTxClosed
	}
	return mt, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// HealthCheck implements ports.HealthChecker for the in-process store.
type HealthCheck struct{}

// NewHealthCheck creates a memory store health checker.
func NewHealthCheck() *HealthCheck {
	return &HealthCheck{}
}

// Ping always succeeds.
func (HealthCheck) Ping(ctx context.Context) error { return nil }

// Name returns the dependency name.
func (HealthCheck) Name() string { return "memory" }
