package postgres

import (
	"errors"
	"fmt"

	"bank-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes translated into domain errors.
const (
	codeUniqueViolation      = "23505"
	codeNumericOutOfRange    = "22003"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// mapError wraps err with op and, for known SQLSTATEs, with the matching domain error.
func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrDuplicateKey, err)
		case codeNumericOutOfRange:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrBalanceOverflow, err)
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrWriteConflict, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
