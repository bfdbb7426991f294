package dto

import (
	"time"

	"bank-ledger/internal/core/domain"
	"bank-ledger/internal/core/ports"
)

// RegisterRequest is the request body for user registration.
// Phone and Aadhaar digit rules are enforced by the auth service.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
	FullName string `json:"full_name" binding:"required,min=1,max=100"`
	Phone    string `json:"phone" binding:"required"`
	Address  string `json:"address" binding:"max=255"`
	Aadhar   string `json:"aadhar" binding:"required"`
	PAN      string `json:"pan,omitempty" binding:"omitempty,pan"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// DepositRequest is the request body for a deposit. Amount is a decimal
// string with at most two fractional digits, e.g. "150.25".
type DepositRequest struct {
	Amount      string `json:"amount" binding:"required,amount"`
	AccountType string `json:"account_type,omitempty" binding:"omitempty,account_type"`
}

// TransferRequest is the request body for a transfer to another user.
type TransferRequest struct {
	RecipientID string `json:"recipient_id" binding:"required,max=64"`
	Amount      string `json:"amount" binding:"required,amount"`
}

// AccountResponse is the response for the caller's account.
type AccountResponse struct {
	OwnerID     string `json:"owner_id"`
	AccountType string `json:"account_type,omitempty"`
	Balance     string `json:"balance"`
}

// ReceiptResponse is the response body for a ledger mutation.
type ReceiptResponse struct {
	TransactionID  string `json:"transaction_id"`
	Kind           string `json:"kind"`
	CounterpartyID string `json:"counterparty_id,omitempty"`
	Amount         string `json:"amount"`
	Balance        string `json:"balance"`
	CreatedAt      string `json:"created_at"`
}

// StatementEntryResponse is one statement line.
type StatementEntryResponse struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	Direction     string `json:"direction"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
	CreatedAt     string `json:"created_at"`
}

// StatementListResponse wraps a page of statement entries.
type StatementListResponse struct {
	Items      []StatementEntryResponse `json:"items"`
	Total      int64                    `json:"total"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	TotalPages int                      `json:"total_pages"`
}

// UserProfileResponse is the caller's profile with identity documents masked.
type UserProfileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address,omitempty"`
	Aadhar    string `json:"aadhar"`
	PAN       string `json:"pan,omitempty"`
	CreatedAt string `json:"created_at"`
}

// NewAccountResponse renders acc; a nil account is an empty balance.
func NewAccountResponse(ownerID string, acc *domain.Account) AccountResponse {
	if acc == nil {
		return AccountResponse{OwnerID: ownerID, Balance: domain.FormatAmount(0)}
	}
	return AccountResponse{
		OwnerID:     acc.OwnerID,
		AccountType: string(acc.AccountType),
		Balance:     domain.FormatAmount(acc.Balance),
	}
}

// NewReceiptResponse renders a receipt.
func NewReceiptResponse(r *domain.Receipt) ReceiptResponse {
	return ReceiptResponse{
		TransactionID:  r.TransactionID.String(),
		Kind:           string(r.Kind),
		CounterpartyID: r.CounterpartyID,
		Amount:         domain.FormatAmount(r.Amount),
		Balance:        domain.FormatAmount(r.Balance),
		CreatedAt:      r.CreatedAt.Format(time.RFC3339Nano),
	}
}

// NewStatementListResponse renders one page of entries.
func NewStatementListResponse(entries []domain.StatementEntry, total int64, page, pageSize int) StatementListResponse {
	items := make([]StatementEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, StatementEntryResponse{
			ID:            e.ID.String(),
			TransactionID: e.TransactionID.String(),
			Direction:     string(e.Direction),
			Amount:        domain.FormatAmount(e.Amount),
			Description:   e.Description,
			CreatedAt:     e.CreatedAt.Format(time.RFC3339Nano),
		})
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}

	return StatementListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// NewUserProfileResponse renders a profile.
func NewUserProfileResponse(p *ports.UserProfile) UserProfileResponse {
	return UserProfileResponse{
		ID:        p.ID.String(),
		Email:     p.Email,
		FullName:  p.FullName,
		Phone:     p.Phone,
		Address:   p.Address,
		Aadhar:    p.AadharMasked,
		PAN:       p.PANMasked,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}
