package in

import (
	"context"

	"ledgertx/internal/modules/ledger/dto"
)

type Usecase interface {
	// Transfer moves money in one transaction without touching the log.
	Transfer(ctx context.Context, input dto.TransferInput) (dto.TransferOutput, error)
	// TransferWithLogRequired logs inside the transfer's transaction.
	TransferWithLogRequired(ctx context.Context, input dto.TransferInput) (dto.TransferOutput, error)
	// TransferWithLogRequiresNew logs each step in its own transaction.
	TransferWithLogRequiresNew(ctx context.Context, input dto.TransferInput) (dto.TransferOutput, error)
	GetAccount(ctx context.Context, name string) (dto.AccountOutput, error)
	ListAccounts(ctx context.Context) ([]dto.AccountOutput, error)
	Seed(ctx context.Context, accounts []dto.SeedAccount) ([]dto.AccountOutput, error)
	Reset(ctx context.Context) error
}
