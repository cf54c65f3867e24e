package sqlitedb_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgertx/internal/platform/sqlitedb"
	"ledgertx/internal/platform/tx"
)

var errBoom = errors.New("boom")

func openDB(t *testing.T) *sqlitedb.DB {
	t.Helper()
	return openDBWithTimeout(t, 2000)
}

func openDBWithTimeout(t *testing.T, busyTimeoutMS int) *sqlitedb.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlitedb.Open(filepath.Join(dir, "main.db"), filepath.Join(dir, "audit.db"), busyTimeoutMS)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	require.NoError(t, db.Run(ctx, func(q sqlitedb.Querier) error {
		if _, err := q.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS main.items (name TEXT PRIMARY KEY)`); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS audit.notes (body TEXT NOT NULL)`)
		return err
	}))
	return db
}

func insert(ctx context.Context, db *sqlitedb.DB, stmt, value string) error {
	return db.Run(ctx, func(q sqlitedb.Querier) error {
		_, err := q.ExecContext(ctx, stmt, value)
		return err
	})
}

func count(t *testing.T, db *sqlitedb.DB, table string) int {
	t.Helper()
	ctx := context.Background()
	var n int
	require.NoError(t, db.Run(ctx, func(q sqlitedb.Querier) error {
		return q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	}))
	return n
}

func TestConnAttachesAuditSchemaOnce(t *testing.T) {
	t.Parallel()
	db := openDB(t)
	ctx := context.Background()

	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	var attached int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM pragma_database_list WHERE name = ?`, sqlitedb.AuditSchema).Scan(&attached))
	assert.Equal(t, 1, attached)
}

func TestIndependentAuditWriteDoesNotWaitOnOuterWriter(t *testing.T) {
	t.Parallel()
	db := openDB(t)
	exec := tx.NewExecutor(db, nil)
	ctx := context.Background()

	err := exec.Required(ctx, func(ctx context.Context) error {
		if err := insert(ctx, db, `INSERT INTO main.items (name) VALUES (?)`, "outer"); err != nil {
			return err
		}
		if err := exec.RequiresNew(ctx, func(ctx context.Context) error {
			return insert(ctx, db, `INSERT INTO audit.notes (body) VALUES (?)`, "independent")
		}); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	assert.Equal(t, 0, count(t, db, "main.items"))
	assert.Equal(t, 1, count(t, db, "audit.notes"))
}

func TestJoinedWritesSpanBothFilesAtomically(t *testing.T) {
	t.Parallel()
	db := openDB(t)
	exec := tx.NewExecutor(db, nil)
	ctx := context.Background()

	err := exec.Required(ctx, func(ctx context.Context) error {
		if err := insert(ctx, db, `INSERT INTO main.items (name) VALUES (?)`, "a"); err != nil {
			return err
		}
		return insert(ctx, db, `INSERT INTO audit.notes (body) VALUES (?)`, "a")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, db, "main.items"))
	assert.Equal(t, 1, count(t, db, "audit.notes"))

	err = exec.Required(ctx, func(ctx context.Context) error {
		if err := insert(ctx, db, `INSERT INTO main.items (name) VALUES (?)`, "b"); err != nil {
			return err
		}
		if err := insert(ctx, db, `INSERT INTO audit.notes (body) VALUES (?)`, "b"); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, count(t, db, "main.items"))
	assert.Equal(t, 1, count(t, db, "audit.notes"))
}

func TestNestedRollsBackToSavepoint(t *testing.T) {
	t.Parallel()
	db := openDB(t)
	exec := tx.NewExecutor(db, nil)
	ctx := context.Background()

	err := exec.Required(ctx, func(ctx context.Context) error {
		if err := insert(ctx, db, `INSERT INTO main.items (name) VALUES (?)`, "kept"); err != nil {
			return err
		}
		nestedErr := exec.Run(ctx, tx.Nested, func(ctx context.Context) error {
			if err := insert(ctx, db, `INSERT INTO main.items (name) VALUES (?)`, "discarded"); err != nil {
				return err
			}
			return errBoom
		})
		if !errors.Is(nestedErr, errBoom) {
			return nestedErr
		}
		return exec.Run(ctx, tx.Nested, func(ctx context.Context) error {
			return insert(ctx, db, `INSERT INTO main.items (name) VALUES (?)`, "released")
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count(t, db, "main.items"))
}

func TestRunRejectsSuspendedContext(t *testing.T) {
	t.Parallel()
	db := openDB(t)
	exec := tx.NewExecutor(db, nil)
	ctx := context.Background()

	err := exec.Required(ctx, func(outer context.Context) error {
		return exec.RequiresNew(outer, func(context.Context) error {
			return insert(outer, db, `INSERT INTO main.items (name) VALUES (?)`, "leaked")
		})
	})
	require.ErrorIs(t, err, tx.ErrTransactionSuspended)
	assert.Equal(t, 0, count(t, db, "main.items"))
}

func TestFailedCommitReleasesWriteLock(t *testing.T) {
	t.Parallel()
	db := openDBWithTimeout(t, 100)
	exec := tx.NewExecutor(db, nil)
	ctx := context.Background()

	reader, err := db.Conn(ctx)
	require.NoError(t, err)
	readTx, err := reader.BeginTx(ctx, nil)
	require.NoError(t, err)
	var n int
	require.NoError(t, readTx.QueryRowContext(ctx, `SELECT COUNT(*) FROM main.items`).Scan(&n))

	var seen *tx.Transaction
	err = exec.Required(ctx, func(ctx context.Context) error {
		seen, _ = tx.Current(ctx)
		return insert(ctx, db, `INSERT INTO main.items (name) VALUES (?)`, "blocked")
	})
	require.ErrorIs(t, err, tx.ErrCommit)
	assert.NotErrorIs(t, err, tx.ErrRollback)
	assert.Equal(t, tx.StateRolledBack, seen.State())

	require.NoError(t, readTx.Rollback())
	require.NoError(t, reader.Close())

	require.NoError(t, exec.Required(ctx, func(ctx context.Context) error {
		return insert(ctx, db, `INSERT INTO main.items (name) VALUES (?)`, "after")
	}))
	assert.Equal(t, 1, count(t, db, "main.items"))
}
