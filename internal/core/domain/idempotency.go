package domain

import (
	"time"

	"github.com/google/uuid"
)

// Operation names used in idempotency keys.
const (
	OperationDeposit  = "deposit"
	OperationTransfer = "transfer"
)

// IdempotencyRecord stores the receipt of a keyed mutation.
type IdempotencyRecord struct {
	Key           string    `json:"key"` // Format: "owner_id:operation:client_key"
	TransactionID uuid.UUID `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"`
	CreatedAt     time.Time `json:"created_at"`
}

// BuildIdempotencyKey scopes a client key to an owner and operation.
func BuildIdempotencyKey(ownerID, operation, clientKey string) string {
	return ownerID + ":" + operation + ":" + clientKey
}
