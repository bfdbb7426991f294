package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor using pgxpool.Pool.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin starts a new database transaction. Commit failures caused by
// serialization conflicts surface as domain.ErrWriteConflict.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, mapError("begin tx", err)
	}
	return &conflictTx{Tx: tx}, nil
}

type conflictTx struct {
	pgx.Tx
}

func (t *conflictTx) Commit(ctx context.Context) error {
	if err := t.Tx.Commit(ctx); err != nil {
		return mapError("commit", err)
	}
	return nil
}
