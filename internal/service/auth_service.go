package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bank-ledger/internal/core/domain"
	"bank-ledger/internal/core/ports"
	"bank-ledger/pkg/apperror"

	"github.com/google/uuid"
)

const (
	phoneDigits  = 10
	aadharDigits = 12
	maskVisible  = 4
)

// AuthServiceImpl implements ports.AuthService and ports.IdentityStore.
type AuthServiceImpl struct {
	userRepo ports.UserRepository
	hashSvc  ports.HashService
	encSvc   ports.EncryptionService
	tokenSvc ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	hashSvc ports.HashService,
	encSvc ports.EncryptionService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo: userRepo,
		hashSvc:  hashSvc,
		encSvc:   encSvc,
		tokenSvc: tokenSvc,
	}
}

// Register creates a new user. Identity documents are stored encrypted.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.User, error) {
	email := normalizeEmail(req.Email)

	if !isDigits(req.Phone, phoneDigits) || !isDigits(req.Aadhar, aadharDigits) {
		return nil, apperror.Validation("invalid phone or Aadhar number")
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailExists()
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	aadharEnc, err := s.encSvc.Encrypt(req.Aadhar)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt aadhar: %w", err))
	}

	var panEnc string
	if req.PAN != "" {
		if panEnc, err = s.encSvc.Encrypt(strings.ToUpper(req.PAN)); err != nil {
			return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt pan: %w", err))
		}
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        req.Phone,
		Address:      strings.TrimSpace(req.Address),
		AadharEnc:    aadharEnc,
		PANEnc:       panEnc,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, apperror.ErrEmailExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	return user, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(user.ID, user.Email)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}

// GetProfile returns the user with Aadhaar and PAN masked to their last digits.
func (s *AuthServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*ports.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrNotFound("User")
	}

	aadhar, err := s.decryptOptional(user.AadharEnc)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt aadhar: %w", err))
	}
	pan, err := s.decryptOptional(user.PANEnc)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt pan: %w", err))
	}

	return &ports.UserProfile{
		ID:           user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
		Phone:        user.Phone,
		Address:      user.Address,
		AadharMasked: mask(aadhar),
		PANMasked:    mask(pan),
		CreatedAt:    user.CreatedAt,
	}, nil
}

// UserExists reports whether ownerID is the canonical id of a registered user.
// Other spellings of the same UUID are unknown, since accounts are keyed by the exact string.
func (s *AuthServiceImpl) UserExists(ctx context.Context, ownerID string) (bool, error) {
	id, err := uuid.Parse(ownerID)
	if err != nil || id.String() != ownerID {
		return false, nil
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("find user: %w", err)
	}
	return user != nil, nil
}

func (s *AuthServiceImpl) decryptOptional(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	return s.encSvc.Decrypt(ciphertext)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// mask hides all but the last few characters.
func mask(s string) string {
	if len(s) <= maskVisible {
		return s
	}
	return strings.Repeat("X", len(s)-maskVisible) + s[len(s)-maskVisible:]
}
