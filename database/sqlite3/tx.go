package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/snapfeed/store"
)

type txKey struct{}

// Transactor runs a function inside one sql transaction. Repositories pick the
// transaction up from the context.
type Transactor struct {
	db *sql.DB
}

var _ store.Transactor = (*Transactor)(nil)

func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise. Nested calls
// join the outer transaction.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Unavailable("begin tx", err)
	}

	err = fn(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "failed to rollback tx", "error", rbErr)
		}

		return err
	}

	err = tx.Commit()
	if err != nil {
		return store.Unavailable("commit tx", err)
	}

	return nil
}

// runner returns the transaction carried by ctx, or db.
func runner(ctx context.Context, db *sql.DB) sq.StdSqlCtx {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}

	return db
}
