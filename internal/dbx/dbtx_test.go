package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS tasks (id INTEGER PRIMARY KEY, status TEXT NOT NULL);`)
	require.NoError(t, err)
	return db
}

func countTasks(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n))
	return n
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO tasks(status) VALUES ('Pending')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, countTasks(t, db), "must commit on success")
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO tasks(status) VALUES ('Pending')`)
		require.NoError(t, e)
		return errors.New("lost race")
	})
	require.Error(t, err)
	require.Equal(t, 0, countTasks(t, db), "must rollback when fn returns error")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 0, countTasks(t, db), "must rollback on panic")
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO tasks(status) VALUES ('Pending')`)
		require.NoError(t, e)
		panic("kaput")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return nil
	})
	require.Error(t, err, "begin should fail when DB is closed")
}

func TestExecOne(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO tasks(id, status) VALUES (1, 'Pending'), (2, 'Pending'), (3, 'Failed')`)
	require.NoError(t, err)

	require.NoError(t, ExecOne(ctx, db, `UPDATE tasks SET status = 'Completed' WHERE id = ? AND status = 'Pending'`, 1))

	err = ExecOne(ctx, db, `UPDATE tasks SET status = 'Completed' WHERE id = ? AND status = 'Pending'`, 1)
	require.ErrorIs(t, err, ErrNoRowsAffected)

	err = ExecOne(ctx, db, `UPDATE tasks SET status = 'Failed' WHERE status = 'Pending' OR status = 'Completed'`)
	require.ErrorContains(t, err, "unexpected rows affected: 2")

	err = ExecOne(ctx, db, `UPDATE missing SET x = 1`)
	require.ErrorContains(t, err, "db error")
}
