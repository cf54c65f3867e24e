// Package pgdb is the PostgreSQL transaction backend built on pgxpool.
package pgdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgertx/internal/platform/tx"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type DB struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, dsn string, maxConns int32) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (d *DB) Close() error {
	d.pool.Close()
	return nil
}

// Begin implements tx.Backend.
func (d *DB) Begin(ctx context.Context) (tx.Handle, error) {
	pgTx, err := d.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin postgres tx: %w", err)
	}
	return &Handle{tx: pgTx}, nil
}

// Run hands fn the ambient transaction on ctx when there is one, otherwise
// the pool in autocommit mode.
func (d *DB) Run(ctx context.Context, fn func(Querier) error) error {
	current, err := tx.Current(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		return fn(d.pool)
	}
	h, ok := current.Handle().(*Handle)
	if !ok {
		return fmt.Errorf("ambient transaction %d is not a postgres transaction", current.ID())
	}
	return fn(h.tx)
}

type Handle struct {
	tx pgx.Tx
}

func (h *Handle) Commit(ctx context.Context) error {
	return h.tx.Commit(ctx)
}

func (h *Handle) Rollback(ctx context.Context) error {
	return h.tx.Rollback(ctx)
}

func (h *Handle) Savepoint(ctx context.Context, name string) error {
	_, err := h.tx.Exec(ctx, "SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

func (h *Handle) RollbackToSavepoint(ctx context.Context, name string) error {
	_, err := h.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

func (h *Handle) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := h.tx.Exec(ctx, "RELEASE SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}
