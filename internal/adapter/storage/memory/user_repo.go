package memory

import (
	"context"

	"bank-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// UserRepo implements ports.UserRepository over a Store.
type UserRepo struct {
	store *Store
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(store *Store) *UserRepo {
	return &UserRepo{store: store}
}

// Create stores u. A registered email yields domain.ErrDuplicateKey.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	s := r.store
	s.userMu.Lock()
	defer s.userMu.Unlock()

	if _, taken := s.emails[u.Email]; taken {
		return domain.ErrDuplicateKey
	}
	if _, taken := s.users[u.ID]; taken {
		return domain.ErrDuplicateKey
	}
	s.users[u.ID] = *u
	s.emails[u.Email] = u.ID
	return nil
}

// GetByID returns the user with id, or nil.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s := r.store
	s.userMu.RLock()
	defer s.userMu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetByEmail returns the user registered with email, or nil.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s := r.store
	s.userMu.RLock()
	defer s.userMu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, nil
	}
	u := s.users[id]
	return &u, nil
}

// AuditRepo implements ports.AuditRepository over a Store.
type AuditRepo struct {
	store *Store
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(store *Store) *AuditRepo {
	return &AuditRepo{store: store}
}

// Create appends entry.
func (r *AuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	s := r.store
	s.auditMu.Lock()
	defer s.auditMu.Unlock()

	s.audits = append(s.audits, *entry)
	return nil
}

// List returns a copy of the stored audit logs in insertion order.
func (r *AuditRepo) List() []domain.AuditLog {
	s := r.store
	s.auditMu.Lock()
	defer s.auditMu.Unlock()

	out := make([]domain.AuditLog, len(s.audits))
	copy(out, s.audits)
	return out
}
