package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxBeginner starts a transaction. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxRunner runs a unit of work inside one Postgres transaction.
type TxRunner struct {
	pool TxBeginner
}

func NewTxRunner(pool TxBeginner) *TxRunner {
	return &TxRunner{pool: pool}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(New(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
