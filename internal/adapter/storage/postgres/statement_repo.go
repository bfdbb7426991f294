package postgres

import (
	"context"
	"fmt"

	"bank-ledger/internal/core/domain"
	"bank-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// StatementRepo implements ports.StatementRepository.
type StatementRepo struct {
	pool Pool
}

// NewStatementRepo creates a new StatementRepo.
func NewStatementRepo(pool Pool) *StatementRepo {
	return &StatementRepo{pool: pool}
}

// Create appends a statement entry within a database transaction.
func (r *StatementRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.StatementEntry) error {
	query := `INSERT INTO statement_entries (id, owner_id, transaction_id, direction, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.OwnerID, e.TransactionID, e.Direction,
		e.Amount, e.Description, e.CreatedAt,
	)
	if err != nil {
		return mapError("insert statement entry", err)
	}
	return nil
}

// List returns one page of the owner's entries, most recent first, with the total count.
func (r *StatementRepo) List(ctx context.Context, params ports.StatementListParams) ([]domain.StatementEntry, int64, error) {
	offset := params.Offset()
	if offset < 0 {
		return nil, 0, domain.ErrPageOutOfRange
	}

	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM statement_entries WHERE owner_id = $1`, params.OwnerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count statement entries: %w", err)
	}

	query := `SELECT id, owner_id, transaction_id, direction, amount, description, created_at
		FROM statement_entries WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, params.OwnerID, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list statement entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.StatementEntry, 0, params.PageSize)
	for rows.Next() {
		e := domain.StatementEntry{}
		if err := rows.Scan(
			&e.ID, &e.OwnerID, &e.TransactionID, &e.Direction,
			&e.Amount, &e.Description, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan statement entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate statement entries: %w", err)
	}
	return entries, total, nil
}
