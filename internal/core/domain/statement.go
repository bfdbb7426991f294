package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction marks a statement entry as money in or money out.
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

// StatementEntry is an immutable record of one credit or debit on an account.
// The two entries of a transfer share TransactionID and CreatedAt.
type StatementEntry struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       string    `json:"owner_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Direction     Direction `json:"direction"`
	Amount        int64     `json:"amount"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}

const depositDescription = "Deposit"

// DepositDescription is the description of every deposit credit.
func DepositDescription() string {
	return depositDescription
}

// TransferOutDescription describes the sender's debit.
func TransferOutDescription(recipientID string) string {
	return fmt.Sprintf("Transfer to %s", recipientID)
}

// TransferInDescription describes the recipient's credit.
func TransferInDescription(senderID string) string {
	return fmt.Sprintf("Transfer from %s", senderID)
}

// NewEntry builds a statement entry with a time-ordered id.
func NewEntry(ownerID string, txID uuid.UUID, dir Direction, amount int64, desc string, at time.Time) (*StatementEntry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate entry id: %w", err)
	}
	return &StatementEntry{
		ID:            id,
		OwnerID:       ownerID,
		TransactionID: txID,
		Direction:     dir,
		Amount:        amount,
		Description:   desc,
		CreatedAt:     at,
	}, nil
}
