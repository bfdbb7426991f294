package domain

import "errors"

// Storage-level conditions that repositories report to services.
var (
	// ErrDuplicateKey is returned when a unique constraint rejects an insert.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrWriteConflict is returned for serialization failures and deadlocks.
	// The transaction was rolled back and may be retried.
	ErrWriteConflict = errors.New("write conflict")
	// ErrBalanceOverflow is returned when a credit would exceed the largest
	// representable balance. Nothing was applied.
	ErrBalanceOverflow = errors.New("balance overflow")
	// ErrPageOutOfRange is returned for a statement page whose offset cannot be represented.
	ErrPageOutOfRange = errors.New("page out of range")
)
