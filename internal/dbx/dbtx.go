// Package dbx provides the small database helpers shared by repositories:
// DBTX, implemented by both *sql.DB and *sql.Tx, a transaction runner, and
// ExecOne for statements that must touch exactly one row.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoRowsAffected is returned by ExecOne when the statement matched no
// row. For conditional updates it means another writer got there first.
var ErrNoRowsAffected = errors.New("no rows affected")

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is a DBTX that can also open transactions. *sql.DB satisfies it, and
// it is what the pool cache hands to request and background handlers.
type DB interface {
	DBTX
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// WithTx runs fn in a transaction on db. The transaction commits when fn
// returns nil and rolls back when it returns an error or panics; the panic
// is rethrown after the rollback.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    return tasks(tx).MarkCompleted(ctx, id, fileID)
//	})
func WithTx(ctx context.Context, db DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, tx)
}

// ExecOne executes query and checks the affected row count: one is success,
// zero is ErrNoRowsAffected and anything more is an error.
func ExecOne(ctx context.Context, db DBTX, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return ErrNoRowsAffected
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
