package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReceiptKind identifies which ledger operation produced a receipt.
type ReceiptKind string

const (
	ReceiptKindDeposit  ReceiptKind = "DEPOSIT"
	ReceiptKindTransfer ReceiptKind = "TRANSFER"
)

// Receipt is the result of a successful ledger mutation. It is what the
// idempotency layer stores and what a replayed request gets back.
type Receipt struct {
	TransactionID  uuid.UUID   `json:"transaction_id"`
	Kind           ReceiptKind `json:"kind"`
	OwnerID        string      `json:"owner_id"`
	CounterpartyID string      `json:"counterparty_id,omitempty"`
	Amount         int64       `json:"amount"`
	Balance        int64       `json:"balance"` // caller's balance after the operation
	CreatedAt      time.Time   `json:"created_at"`

	// Replayed is set when the receipt came from the idempotency store.
	Replayed bool `json:"-"`
}
