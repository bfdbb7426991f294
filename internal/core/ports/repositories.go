package ports

import (
	"context"
	"math"

	"bank-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// AccountRepository defines persistence operations for ledger accounts.
// Methods accepting pgx.Tx run inside the caller's transaction and lock the row they touch.
type AccountRepository interface {
	GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error)
	// Credit adds amount to the owner's balance, creating the account with
	// accountType when it does not exist yet. Returns the updated account.
	Credit(ctx context.Context, tx pgx.Tx, ownerID string, accountType domain.AccountType, amount int64) (*domain.Account, error)
	// Debit subtracts amount only if the balance covers it. Returns nil, nil
	// when the account is missing or the balance is insufficient.
	Debit(ctx context.Context, tx pgx.Tx, ownerID string, amount int64) (*domain.Account, error)
}

// StatementRepository defines persistence operations for statement entries.
type StatementRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.StatementEntry) error
	List(ctx context.Context, params StatementListParams) ([]domain.StatementEntry, int64, error)
}

// Statement paging bounds.
const (
	DefaultStatementPageSize = 20
	MaxStatementPageSize     = 100
	MaxStatementPage         = 1_000_000
)

// StatementListParams holds pagination for listing an owner's statement.
type StatementListParams struct {
	OwnerID  string
	Page     int
	PageSize int
}

// Normalized fills in the default page and page size and caps the page size.
func (p StatementListParams) Normalized() StatementListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultStatementPageSize
	}
	if p.PageSize > MaxStatementPageSize {
		p.PageSize = MaxStatementPageSize
	}
	return p
}

// Offset is the number of entries skipped before the page, or -1 when the
// page is invalid or its offset would not fit in an int32.
func (p StatementListParams) Offset() int {
	if p.Page < 1 || p.PageSize < 1 || p.Page-1 > math.MaxInt32/p.PageSize {
		return -1
	}
	return (p.Page - 1) * p.PageSize
}

// IdempotencyRepository defines persistence for idempotency records (DB layer).
// Create returns domain.ErrDuplicateKey when the key is already taken.
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, record *domain.IdempotencyRecord) error
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}

// UserRepository defines persistence operations for users.
// Create returns domain.ErrDuplicateKey when the email is already registered.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// AuditRepository persists audit logs.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
