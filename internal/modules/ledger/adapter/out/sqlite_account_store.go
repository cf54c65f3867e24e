package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"ledgertx/internal/modules/ledger/domain"
	ledgerout "ledgertx/internal/modules/ledger/port/out"
	apperrors "ledgertx/internal/platform/errors"
	"ledgertx/internal/platform/money"
	"ledgertx/internal/platform/sqlitedb"
)

type SQLiteAccountStore struct {
	db *sqlitedb.DB
}

func NewSQLiteAccountStore(ctx context.Context, db *sqlitedb.DB) (ledgerout.AccountStore, error) {
	store := &SQLiteAccountStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteAccountStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS main.accounts (
  name TEXT PRIMARY KEY,
  balance INTEGER NOT NULL
);
`
	return s.db.Run(ctx, func(q sqlitedb.Querier) error {
		if _, err := q.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create accounts table: %w", err)
		}
		return nil
	})
}

func (s *SQLiteAccountStore) Debit(ctx context.Context, name string, amount decimal.Decimal, allowNegative bool) error {
	minor, err := money.ToMinor(amount)
	if err != nil {
		return err
	}
	return s.db.Run(ctx, func(q sqlitedb.Querier) error {
		res, err := q.ExecContext(ctx, `
UPDATE main.accounts SET balance = balance - ?
WHERE name = ? AND (? OR balance >= ?);
`, minor, name, allowNegative, minor)
		if err != nil {
			return fmt.Errorf("debit account: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("debit account: %w", err)
		}
		if affected > 0 {
			return nil
		}
		var exists int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM main.accounts WHERE name = ?`, name).Scan(&exists); err != nil {
			return fmt.Errorf("lookup account: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, name)
		}
		return fmt.Errorf("%w: %s", apperrors.ErrInsufficientFunds, name)
	})
}

func (s *SQLiteAccountStore) Credit(ctx context.Context, name string, amount decimal.Decimal) error {
	minor, err := money.ToMinor(amount)
	if err != nil {
		return err
	}
	return s.db.Run(ctx, func(q sqlitedb.Querier) error {
		res, err := q.ExecContext(ctx, `UPDATE main.accounts SET balance = balance + ? WHERE name = ?`, minor, name)
		if err != nil {
			return fmt.Errorf("credit account: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("credit account: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, name)
		}
		return nil
	})
}

func (s *SQLiteAccountStore) Get(ctx context.Context, name string) (domain.Account, error) {
	var account domain.Account
	err := s.db.Run(ctx, func(q sqlitedb.Querier) error {
		var balance int64
		err := q.QueryRowContext(ctx, `SELECT name, balance FROM main.accounts WHERE name = ?`, name).Scan(&account.Name, &balance)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, name)
		}
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		account.Balance = money.FromMinor(balance)
		return nil
	})
	return account, err
}

func (s *SQLiteAccountStore) List(ctx context.Context) ([]domain.Account, error) {
	out := make([]domain.Account, 0)
	err := s.db.Run(ctx, func(q sqlitedb.Querier) error {
		rows, err := q.QueryContext(ctx, `SELECT name, balance FROM main.accounts ORDER BY name`)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				account domain.Account
				balance int64
			)
			if err := rows.Scan(&account.Name, &balance); err != nil {
				return fmt.Errorf("scan account: %w", err)
			}
			account.Balance = money.FromMinor(balance)
			out = append(out, account)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteAccountStore) Upsert(ctx context.Context, account domain.Account) error {
	minor, err := money.ToMinor(account.Balance)
	if err != nil {
		return err
	}
	return s.db.Run(ctx, func(q sqlitedb.Querier) error {
		if _, err := q.ExecContext(ctx, `
INSERT INTO main.accounts (name, balance) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET balance = excluded.balance;
`, account.Name, minor); err != nil {
			return fmt.Errorf("upsert account: %w", err)
		}
		return nil
	})
}

func (s *SQLiteAccountStore) Reset(ctx context.Context) error {
	return s.db.Run(ctx, func(q sqlitedb.Querier) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM main.accounts`); err != nil {
			return fmt.Errorf("reset accounts: %w", err)
		}
		return nil
	})
}
