package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type txRunner struct {
	name   string
	locked bool
	run    func(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx DBTX) error) error
}

var runners = []txRunner{
	{
		name: "WithTx",
		run: func(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx DBTX) error) error {
			return WithTx(ctx, db, nil, fn)
		},
	},
	{
		name:   "WithLockedTx",
		locked: true,
		run: func(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx DBTX) error) error {
			return WithLockedTx(ctx, db, 7, fn)
		},
	},
}

func newMock(t *testing.T, r txRunner) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	if r.locked {
		mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	return db, mock
}

func TestTx_CommitsOnSuccess(t *testing.T) {
	for _, r := range runners {
		t.Run(r.name, func(t *testing.T) {
			db, mock := newMock(t, r)
			mock.ExpectExec(`INSERT INTO records`).WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectCommit()

			err := r.run(context.Background(), db, func(ctx context.Context, tx DBTX) error {
				_, err := tx.ExecContext(ctx, `INSERT INTO records(id) VALUES (1)`)
				return err
			})
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTx_RollbackOnFnError(t *testing.T) {
	for _, r := range runners {
		t.Run(r.name, func(t *testing.T) {
			db, mock := newMock(t, r)
			mock.ExpectRollback()

			boom := errors.New("boom")
			err := r.run(context.Background(), db, func(context.Context, DBTX) error { return boom })
			require.ErrorIs(t, err, boom)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTx_RollbackOnPanic(t *testing.T) {
	for _, r := range runners {
		t.Run(r.name, func(t *testing.T) {
			db, mock := newMock(t, r)
			mock.ExpectRollback()

			require.PanicsWithValue(t, "kaput", func() {
				_ = r.run(context.Background(), db, func(context.Context, DBTX) error { panic("kaput") })
			})
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTx_BeginError(t *testing.T) {
	for _, r := range runners {
		t.Run(r.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectBegin().WillReturnError(errors.New("no connection"))

			called := false
			err = r.run(context.Background(), db, func(context.Context, DBTX) error {
				called = true
				return nil
			})
			require.ErrorContains(t, err, "no connection")
			require.False(t, called)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// A real driver confirms rolled back rows are gone.
func TestWithTx_SQLiteVisibility(t *testing.T) {
	db, err := sql.Open("sqlite", "file:dbx_visibility?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS counters (name TEXT PRIMARY KEY, n INTEGER)`)
	require.NoError(t, err)

	insert := func(name string, fail bool) error {
		return WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			if _, err := tx.ExecContext(ctx, `INSERT INTO counters(name, n) VALUES (?, 1)`, name); err != nil {
				return err
			}
			if fail {
				return errors.New("abort")
			}
			return nil
		})
	}

	require.NoError(t, insert("kept", false))
	require.Error(t, insert("dropped", true))

	var names []string
	rows, err := db.Query(`SELECT name FROM counters ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"kept"}, names)
}
