// Package sqlitedb is the embedded transaction backend.
//
// Accounts live in the main database file and the transfer log in a second
// file attached as schema "audit" on every connection. SQLite locks per file,
// so an independent transaction that only appends to the log never waits on
// the write lock an outer transaction holds on the accounts file.
package sqlitedb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	"ledgertx/internal/platform/tx"

	_ "modernc.org/sqlite"
)

const AuditSchema = "audit"

// Querier is satisfied by *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	db            *sql.DB
	auditPath     string
	busyTimeoutMS int
}

func Open(path, auditPath string, busyTimeoutMS int) (*DB, error) {
	for _, p := range []string{path, auditPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &DB{db: db, auditPath: auditPath, busyTimeoutMS: busyTimeoutMS}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Conn checks out a connection with the audit file attached.
func (d *DB) Conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire sqlite conn: %w", err)
	}
	if err := d.prepare(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (d *DB) prepare(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", d.busyTimeoutMS)); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	var attached int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM pragma_database_list WHERE name = ?`, AuditSchema).Scan(&attached); err != nil {
		return fmt.Errorf("inspect attached databases: %w", err)
	}
	if attached > 0 {
		return nil
	}
	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS `+AuditSchema, d.auditPath); err != nil {
		return fmt.Errorf("attach audit database: %w", err)
	}
	return nil
}

// Begin implements tx.Backend.
func (d *DB) Begin(ctx context.Context) (tx.Handle, error) {
	conn, err := d.Conn(ctx)
	if err != nil {
		return nil, err
	}
	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("begin sqlite tx: %w", err)
	}
	return &Handle{conn: conn, tx: sqlTx}, nil
}

// Run hands fn the ambient transaction on ctx when there is one, otherwise a
// fresh autocommit connection.
func (d *DB) Run(ctx context.Context, fn func(Querier) error) error {
	current, err := tx.Current(ctx)
	if err != nil {
		return err
	}
	if current != nil {
		h, ok := current.Handle().(*Handle)
		if !ok {
			return fmt.Errorf("ambient transaction %d is not a sqlite transaction", current.ID())
		}
		return fn(h.tx)
	}
	conn, err := d.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// Handle is one sqlite transaction pinned to its connection.
type Handle struct {
	conn *sql.Conn
	tx   *sql.Tx
}

// Commit ends the transaction. A failed COMMIT (SQLITE_BUSY while a reader
// holds its shared lock) leaves the write transaction open on the
// connection, so it is rolled back here before the connection goes back to
// the pool. If that fails too the connection is discarded.
func (h *Handle) Commit(ctx context.Context) error {
	defer h.conn.Close()
	err := h.tx.Commit()
	if err == nil {
		return nil
	}
	if _, rbErr := h.conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
		_ = h.conn.Raw(func(any) error { return driver.ErrBadConn })
		return &tx.Error{Kind: tx.KindRollback, Err: rbErr, Cause: &tx.Error{Kind: tx.KindCommit, Err: err}}
	}
	return err
}

func (h *Handle) Rollback(context.Context) error {
	defer h.conn.Close()
	return h.tx.Rollback()
}

func (h *Handle) Savepoint(ctx context.Context, name string) error {
	_, err := h.tx.ExecContext(ctx, "SAVEPOINT "+name)
	return err
}

func (h *Handle) RollbackToSavepoint(ctx context.Context, name string) error {
	_, err := h.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
	return err
}

func (h *Handle) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := h.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}
