package postgres

import (
	"context"
	"errors"
	"fmt"

	"bank-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `owner_id, account_type, balance, created_at, updated_at`

// AccountRepo implements ports.AccountRepository.
// Balance changes are single conditional statements, so the read-check-write
// happens under the row lock postgres takes for the update.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// GetByOwner fetches an account (non-locking read).
func (r *AccountRepo) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1`

	acc, err := scanAccount(r.pool.QueryRow(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

// Credit upserts the account, adding amount to its balance.
// accountType only applies when the row is created.
func (r *AccountRepo) Credit(ctx context.Context, tx pgx.Tx, ownerID string, accountType domain.AccountType, amount int64) (*domain.Account, error) {
	query := `INSERT INTO accounts (owner_id, account_type, balance, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (owner_id) DO UPDATE
		SET balance = accounts.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING ` + accountColumns

	acc, err := scanAccount(tx.QueryRow(ctx, query, ownerID, accountType, amount))
	if err != nil {
		return nil, mapError("credit account", err)
	}
	return acc, nil
}

// Debit subtracts amount only when the current balance covers it.
// Returns nil, nil when the account is missing or underfunded.
func (r *AccountRepo) Debit(ctx context.Context, tx pgx.Tx, ownerID string, amount int64) (*domain.Account, error) {
	query := `UPDATE accounts SET balance = balance - $1, updated_at = NOW()
		WHERE owner_id = $2 AND balance >= $1
		RETURNING ` + accountColumns

	acc, err := scanAccount(tx.QueryRow(ctx, query, amount, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("debit account", err)
	}
	return acc, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	if err := row.Scan(&a.OwnerID, &a.AccountType, &a.Balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return a, nil
}
