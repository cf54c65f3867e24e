package in

import (
	"context"

	"ledgertx/internal/modules/demo/dto"
)

type Usecase interface {
	// Run resets both stores, seeds the accounts and runs every experiment.
	Run(ctx context.Context, input dto.RunInput) (dto.RunOutput, error)
}
