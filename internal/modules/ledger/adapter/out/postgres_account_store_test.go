package out_test

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerout "ledgertx/internal/modules/ledger/adapter/out"
	"ledgertx/internal/modules/ledger/domain"
	ledgerdto "ledgertx/internal/modules/ledger/dto"
	"ledgertx/internal/modules/ledger/service"
	"ledgertx/internal/modules/ledger/usecase"
	apperrors "ledgertx/internal/platform/errors"
	"ledgertx/internal/platform/pgdb"
	"ledgertx/internal/platform/tx"
)

// The subtests share one database and run in order.
func TestPostgresAccountStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := pgdb.Open(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := ledgerout.NewPostgresAccountStore(ctx, db)
	require.NoError(t, err)
	exec := tx.NewExecutor(db, nil)

	seed := func(t *testing.T) {
		t.Helper()
		require.NoError(t, store.Reset(ctx))
		require.NoError(t, store.Upsert(ctx, domain.Account{Name: "X", Balance: decimal.NewFromInt(1)}))
		require.NoError(t, store.Upsert(ctx, domain.Account{Name: "X", Balance: decimal.NewFromInt(1000)}))
		require.NoError(t, store.Upsert(ctx, domain.Account{Name: "Y", Balance: decimal.NewFromInt(2000)}))
	}
	balance := func(t *testing.T, name string) string {
		t.Helper()
		account, err := store.Get(ctx, name)
		require.NoError(t, err)
		return account.Balance.StringFixed(2)
	}
	ledger := usecase.NewInteractor(usecase.Deps{
		Service: service.NewAccountService(store, false),
		Tx:      exec,
	})
	transfer := func(in ledgerdto.TransferInput) error {
		_, err := ledger.Transfer(ctx, in)
		return err
	}

	t.Run("upsert replaces balance", func(t *testing.T) {
		seed(t)
		accounts, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "1000.00", balance(t, "X"))
	})

	t.Run("debit refuses overdraft unless allowed", func(t *testing.T) {
		seed(t)
		err := store.Debit(ctx, "X", decimal.NewFromInt(5000), false)
		require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
		assert.Equal(t, "1000.00", balance(t, "X"))

		require.NoError(t, store.Debit(ctx, "X", decimal.NewFromInt(1500), true))
		assert.Equal(t, "-500.00", balance(t, "X"))

		err = store.Debit(ctx, "Z", decimal.NewFromInt(1), false)
		require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
		err = store.Credit(ctx, "Z", decimal.NewFromInt(1))
		require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
	})

	t.Run("transfer commits debit and credit", func(t *testing.T) {
		seed(t)
		require.NoError(t, transfer(ledgerdto.TransferInput{From: "X", To: "Y", Amount: decimal.RequireFromString("100.25")}))
		assert.Equal(t, "899.75", balance(t, "X"))
		assert.Equal(t, "2100.25", balance(t, "Y"))
	})

	t.Run("failure before credit rolls back debit", func(t *testing.T) {
		seed(t)
		err := transfer(ledgerdto.TransferInput{From: "X", To: "Y", Amount: decimal.NewFromInt(100), SimulateFailure: "network timeout"})
		require.ErrorIs(t, err, apperrors.ErrSimulatedFailure)
		assert.Equal(t, "1000.00", balance(t, "X"))
		assert.Equal(t, "2000.00", balance(t, "Y"))
	})

	t.Run("unknown destination rolls back", func(t *testing.T) {
		seed(t)
		err := transfer(ledgerdto.TransferInput{From: "X", To: "Z", Amount: decimal.NewFromInt(1)})
		require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
		assert.Equal(t, "1000.00", balance(t, "X"))
	})

	t.Run("nested savepoint undoes only its own debit", func(t *testing.T) {
		seed(t)
		err := exec.Required(ctx, func(ctx context.Context) error {
			if err := store.Debit(ctx, "X", decimal.NewFromInt(10), false); err != nil {
				return err
			}
			nestedErr := exec.Run(ctx, tx.Nested, func(ctx context.Context) error {
				if err := store.Debit(ctx, "X", decimal.NewFromInt(20), false); err != nil {
					return err
				}
				return apperrors.ErrSimulatedFailure
			})
			assert.ErrorIs(t, nestedErr, apperrors.ErrSimulatedFailure)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "990.00", balance(t, "X"))
	})
}
