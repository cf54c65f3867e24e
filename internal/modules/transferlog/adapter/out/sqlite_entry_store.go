package out

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ledgertx/internal/modules/transferlog/domain"
	logout "ledgertx/internal/modules/transferlog/port/out"
	"ledgertx/internal/platform/money"
	"ledgertx/internal/platform/sqlitedb"
)

// Fixed-width UTC timestamps keep lexical order equal to time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteEntryStore struct {
	db *sqlitedb.DB
}

func NewSQLiteEntryStore(ctx context.Context, db *sqlitedb.DB) (logout.EntryStore, error) {
	store := &SQLiteEntryStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteEntryStore) ensureSchema(ctx context.Context) error {
	ddl := []string{`
CREATE TABLE IF NOT EXISTS audit.transfer_log (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  from_account TEXT NOT NULL,
  to_account TEXT NOT NULL,
  amount INTEGER NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('SUCCESS', 'FAILED')),
  message TEXT NOT NULL,
  created_at TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS audit.idx_transfer_log_status ON transfer_log(status, created_at)`,
	}
	return s.db.Run(ctx, func(q sqlitedb.Querier) error {
		for _, stmt := range ddl {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create transfer_log table: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteEntryStore) Insert(ctx context.Context, entry domain.Entry) (int64, error) {
	amount, err := money.ToMinor(entry.Amount)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.Run(ctx, func(q sqlitedb.Querier) error {
		res, err := q.ExecContext(ctx, `
INSERT INTO audit.transfer_log (from_account, to_account, amount, status, message, created_at)
VALUES (?, ?, ?, ?, ?, ?);
`,
			entry.FromAccount,
			entry.ToAccount,
			amount,
			string(entry.Status),
			entry.Message,
			entry.CreatedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("insert transfer log: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read transfer log id: %w", err)
		}
		return nil
	})
	return id, err
}

func (s *SQLiteEntryStore) ListAll(ctx context.Context) ([]domain.Entry, error) {
	return s.list(ctx, `
SELECT id, from_account, to_account, amount, status, message, created_at
FROM audit.transfer_log
ORDER BY created_at DESC, id DESC;
`)
}

func (s *SQLiteEntryStore) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Entry, error) {
	return s.list(ctx, `
SELECT id, from_account, to_account, amount, status, message, created_at
FROM audit.transfer_log
WHERE status = ?
ORDER BY created_at DESC, id DESC;
`, string(status))
}

func (s *SQLiteEntryStore) list(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	out := make([]domain.Entry, 0)
	err := s.db.Run(ctx, func(q sqlitedb.Querier) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list transfer logs: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			out = append(out, entry)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate transfer logs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanEntry(rows *sql.Rows) (domain.Entry, error) {
	var (
		entry     domain.Entry
		amount    int64
		status    string
		createdAt string
	)
	if err := rows.Scan(&entry.ID, &entry.FromAccount, &entry.ToAccount, &amount, &status, &entry.Message, &createdAt); err != nil {
		return domain.Entry{}, fmt.Errorf("scan transfer log: %w", err)
	}
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("parse transfer log time: %w", err)
	}
	entry.Amount = money.FromMinor(amount)
	entry.Status = domain.Status(status)
	entry.CreatedAt = ts
	return entry, nil
}

func (s *SQLiteEntryStore) Reset(ctx context.Context) error {
	return s.db.Run(ctx, func(q sqlitedb.Querier) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM audit.transfer_log`); err != nil {
			return fmt.Errorf("reset transfer logs: %w", err)
		}
		return nil
	})
}
