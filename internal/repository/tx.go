package repository

import (
	"context"
	"database/sql"
)

// TxRunner executes a function inside a single database transaction.
// The transaction is rolled back on any error or panic and committed
// otherwise, so callers never observe partial writes.  Row locks taken
// inside fn are held until commit or rollback.
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner returns a TxRunner bound to the given database.
func NewTxRunner(db *sql.DB) *TxRunner { return &TxRunner{db: db} }

// RunTx begins a transaction, invokes fn with it and commits when fn
// returns nil.  Any error from fn (or from commit) rolls the
// transaction back and is returned to the caller unchanged.
func (t *TxRunner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
