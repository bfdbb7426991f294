package ports

import (
	"context"
	"time"

	"bank-ledger/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, email string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IdentityStore answers whether a ledger owner id belongs to a known user.
type IdentityStore interface {
	UserExists(ctx context.Context, ownerID string) (bool, error)
}

// AuditService records audited actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// LedgerService owns account balances and statement history.
type LedgerService interface {
	GetBalance(ctx context.Context, ownerID string) (int64, error)
	GetAccount(ctx context.Context, ownerID string) (*domain.Account, error)
	Deposit(ctx context.Context, req DepositRequest) (*domain.Receipt, error)
	Transfer(ctx context.Context, req TransferRequest) (*domain.Receipt, error)
	ListStatements(ctx context.Context, params StatementListParams) ([]domain.StatementEntry, int64, error)
}

// DepositRequest holds validated input for a deposit.
type DepositRequest struct {
	OwnerID        string
	Amount         int64
	AccountType    domain.AccountType // empty = configured default
	IdempotencyKey string             // optional
}

// TransferRequest holds validated input for a transfer.
type TransferRequest struct {
	SenderID       string
	RecipientID    string
	Amount         int64
	IdempotencyKey string // optional
}

// AuthService defines registration, login and profile lookup.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, time.Time, error) // token, expiry, error
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
	UserExists(ctx context.Context, ownerID string) (bool, error)
}

// RegisterRequest holds input for user registration.
type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Address  string
	Aadhar   string
	PAN      string
}

// UserProfile is the user view with identity documents masked.
type UserProfile struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	Phone        string
	Address      string
	AadharMasked string
	PANMasked    string
	CreatedAt    time.Time
}
