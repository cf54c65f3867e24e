package in

import (
	"context"
	"fmt"
	"strings"

	ledgerdto "ledgertx/internal/modules/ledger/dto"
	ledgerin "ledgertx/internal/modules/ledger/port/in"
	"ledgertx/internal/platform/config"
	apperrors "ledgertx/internal/platform/errors"
	"ledgertx/internal/platform/money"
	"ledgertx/internal/platform/tx"
)

type CLIHandler struct {
	usecase ledgerin.Usecase
}

func NewCLIHandler(usecase ledgerin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

// Transfer parses the raw amount and dispatches on logMode: "none" or the
// propagation the log entries are written under ("required", "requires-new").
func (h CLIHandler) Transfer(ctx context.Context, from, to, amount, logMode, fail string) (ledgerdto.TransferOutput, error) {
	parsed, err := money.Parse(amount)
	if err != nil {
		return ledgerdto.TransferOutput{}, err
	}
	input := ledgerdto.TransferInput{From: from, To: to, Amount: parsed, SimulateFailure: fail}
	if mode := strings.ToLower(strings.TrimSpace(logMode)); mode == "" || mode == "none" {
		return h.usecase.Transfer(ctx, input)
	}
	propagation, err := tx.ParsePropagation(logMode)
	if err != nil {
		return ledgerdto.TransferOutput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	switch propagation {
	case tx.Required:
		return h.usecase.TransferWithLogRequired(ctx, input)
	case tx.RequiresNew:
		return h.usecase.TransferWithLogRequiresNew(ctx, input)
	default:
		return ledgerdto.TransferOutput{}, fmt.Errorf("%w: transfer logging does not support %s", apperrors.ErrInvalidInput, propagation)
	}
}

func (h CLIHandler) Accounts(ctx context.Context) ([]ledgerdto.AccountOutput, error) {
	return h.usecase.ListAccounts(ctx)
}

func (h CLIHandler) Account(ctx context.Context, name string) (ledgerdto.AccountOutput, error) {
	return h.usecase.GetAccount(ctx, name)
}

func (h CLIHandler) Seed(ctx context.Context, seeds []config.SeedAccount) ([]ledgerdto.AccountOutput, error) {
	accounts := make([]ledgerdto.SeedAccount, 0, len(seeds))
	for _, seed := range seeds {
		balance, err := money.Parse(seed.Balance)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", seed.Name, err)
		}
		accounts = append(accounts, ledgerdto.SeedAccount{Name: seed.Name, Balance: balance})
	}
	return h.usecase.Seed(ctx, accounts)
}

func (h CLIHandler) Reset(ctx context.Context) error {
	return h.usecase.Reset(ctx)
}
