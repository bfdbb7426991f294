package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered bank customer. The ledger owner id of a user is ID.String().
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	AadharEnc    string    `json:"-"` // AES-256-GCM
	PANEnc       string    `json:"-"` // AES-256-GCM
	CreatedAt    time.Time `json:"created_at"`
}

// OwnerID returns the ledger owner id for the user.
func (u *User) OwnerID() string {
	return u.ID.String()
}
