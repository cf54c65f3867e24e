package out

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"ledgertx/internal/modules/ledger/domain"
	ledgerout "ledgertx/internal/modules/ledger/port/out"
	apperrors "ledgertx/internal/platform/errors"
	"ledgertx/internal/platform/money"
	"ledgertx/internal/platform/pgdb"
)

type PostgresAccountStore struct {
	db *pgdb.DB
}

func NewPostgresAccountStore(ctx context.Context, db *pgdb.DB) (ledgerout.AccountStore, error) {
	store := &PostgresAccountStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresAccountStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS accounts (
  name TEXT PRIMARY KEY,
  balance BIGINT NOT NULL
);
`
	return s.db.Run(ctx, func(q pgdb.Querier) error {
		if _, err := q.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create accounts table: %w", err)
		}
		return nil
	})
}

func (s *PostgresAccountStore) Debit(ctx context.Context, name string, amount decimal.Decimal, allowNegative bool) error {
	minor, err := money.ToMinor(amount)
	if err != nil {
		return err
	}
	return s.db.Run(ctx, func(q pgdb.Querier) error {
		tag, err := q.Exec(ctx, `
UPDATE accounts SET balance = balance - $1
WHERE name = $2 AND ($3 OR balance >= $1);
`, minor, name, allowNegative)
		if err != nil {
			return fmt.Errorf("debit account: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE name = $1)`, name).Scan(&exists); err != nil {
			return fmt.Errorf("lookup account: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, name)
		}
		return fmt.Errorf("%w: %s", apperrors.ErrInsufficientFunds, name)
	})
}

func (s *PostgresAccountStore) Credit(ctx context.Context, name string, amount decimal.Decimal) error {
	minor, err := money.ToMinor(amount)
	if err != nil {
		return err
	}
	return s.db.Run(ctx, func(q pgdb.Querier) error {
		tag, err := q.Exec(ctx, `UPDATE accounts SET balance = balance + $1 WHERE name = $2`, minor, name)
		if err != nil {
			return fmt.Errorf("credit account: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, name)
		}
		return nil
	})
}

func (s *PostgresAccountStore) Get(ctx context.Context, name string) (domain.Account, error) {
	var account domain.Account
	err := s.db.Run(ctx, func(q pgdb.Querier) error {
		var balance int64
		err := q.QueryRow(ctx, `SELECT name, balance FROM accounts WHERE name = $1`, name).Scan(&account.Name, &balance)
		if errors.Is(err, pgx.ErrNoRows) {
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

func (s *PostgresAccountStore) List(ctx context.Context) ([]domain.Account, error) {
	out := make([]domain.Account, 0)
	err := s.db.Run(ctx, func(q pgdb.Querier) error {
		rows, err := q.Query(ctx, `SELECT name, balance FROM accounts ORDER BY name`)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Account, error) {
			var (
				account domain.Account
				balance int64
			)
			if err := row.Scan(&account.Name, &balance); err != nil {
				return domain.Account{}, err
			}
			account.Balance = money.FromMinor(balance)
			return account, nil
		})
		if err != nil {
			return fmt.Errorf("scan accounts: %w", err)
		}
		out = append(out, accounts...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresAccountStore) Upsert(ctx context.Context, account domain.Account) error {
	minor, err := money.ToMinor(account.Balance)
	if err != nil {
		return err
	}
	return s.db.Run(ctx, func(q pgdb.Querier) error {
		if _, err := q.Exec(ctx, `
INSERT INTO accounts (name, balance) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET balance = EXCLUDED.balance;
`, account.Name, minor); err != nil {
			return fmt.Errorf("upsert account: %w", err)
		}
		return nil
	})
}

func (s *PostgresAccountStore) Reset(ctx context.Context) error {
	return s.db.Run(ctx, func(q pgdb.Querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM accounts`); err != nil {
			return fmt.Errorf("reset accounts: %w", err)
		}
		return nil
	})
}
