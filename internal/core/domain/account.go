package domain

import "time"

// AccountType is an informational label fixed when the account is created.
type AccountType string

const (
	AccountTypeSavings AccountType = "savings"
	AccountTypeCurrent AccountType = "current"
)

// DefaultAccountType is used for accounts created by an incoming transfer.
const DefaultAccountType = AccountTypeSavings

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	return t == AccountTypeSavings || t == AccountTypeCurrent
}

// Account holds one owner's balance in minor units. Balance is never negative.
type Account struct {
	OwnerID     string      `json:"owner_id"`
	AccountType AccountType `json:"account_type"`
	Balance     int64       `json:"balance"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CanDebit reports whether the account holds at least amount.
func (a *Account) CanDebit(amount int64) bool {
	return a != nil && amount > 0 && a.Balance >= amount
}
