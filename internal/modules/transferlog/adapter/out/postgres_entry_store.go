package out

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ledgertx/internal/modules/transferlog/domain"
	logout "ledgertx/internal/modules/transferlog/port/out"
	"ledgertx/internal/platform/money"
	"ledgertx/internal/platform/pgdb"
)

type PostgresEntryStore struct {
	db *pgdb.DB
}

func NewPostgresEntryStore(ctx context.Context, db *pgdb.DB) (logout.EntryStore, error) {
	store := &PostgresEntryStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresEntryStore) ensureSchema(ctx context.Context) error {
	ddl := []string{`
CREATE TABLE IF NOT EXISTS transfer_log (
  id BIGSERIAL PRIMARY KEY,
  from_account TEXT NOT NULL,
  to_account TEXT NOT NULL,
  amount BIGINT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('SUCCESS', 'FAILED')),
  message TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_transfer_log_status ON transfer_log(status, created_at)`,
	}
	return s.db.Run(ctx, func(q pgdb.Querier) error {
		for _, stmt := range ddl {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create transfer_log table: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresEntryStore) Insert(ctx context.Context, entry domain.Entry) (int64, error) {
	amount, err := money.ToMinor(entry.Amount)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.Run(ctx, func(q pgdb.Querier) error {
		row := q.QueryRow(ctx, `
INSERT INTO transfer_log (from_account, to_account, amount, status, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id;
`, entry.FromAccount, entry.ToAccount, amount, string(entry.Status), entry.Message, entry.CreatedAt.UTC())
		if err := row.Scan(&id); err != nil {
			return fmt.Errorf("insert transfer log: %w", err)
		}
		return nil
	})
	return id, err
}

func (s *PostgresEntryStore) ListAll(ctx context.Context) ([]domain.Entry, error) {
	return s.list(ctx, `
SELECT id, from_account, to_account, amount, status, message, created_at
FROM transfer_log
ORDER BY created_at DESC, id DESC;
`)
}

func (s *PostgresEntryStore) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Entry, error) {
	return s.list(ctx, `
SELECT id, from_account, to_account, amount, status, message, created_at
FROM transfer_log
WHERE status = $1
ORDER BY created_at DESC, id DESC;
`, string(status))
}

func (s *PostgresEntryStore) list(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	out := make([]domain.Entry, 0)
	err := s.db.Run(ctx, func(q pgdb.Querier) error {
		rows, err := q.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list transfer logs: %w", err)
		}
		entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Entry, error) {
			var (
				entry     domain.Entry
				amount    int64
				status    string
				createdAt time.Time
			)
			if err := row.Scan(&entry.ID, &entry.FromAccount, &entry.ToAccount, &amount, &status, &entry.Message, &createdAt); err != nil {
				return domain.Entry{}, err
			}
			entry.Amount = money.FromMinor(amount)
			entry.Status = domain.Status(status)
			entry.CreatedAt = createdAt.UTC()
			return entry, nil
		})
		if err != nil {
			return fmt.Errorf("scan transfer logs: %w", err)
		}
		out = append(out, entries...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresEntryStore) Reset(ctx context.Context) error {
	return s.db.Run(ctx, func(q pgdb.Querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM transfer_log`); err != nil {
			return fmt.Errorf("reset transfer logs: %w", err)
		}
		return nil
	})
}
