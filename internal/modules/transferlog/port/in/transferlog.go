package in

import (
	"context"

	"ledgertx/internal/modules/transferlog/dto"
)

type Usecase interface {
	// LogRequired appends inside the caller's transaction, starting one if needed.
	LogRequired(ctx context.Context, input dto.LogInput) (dto.EntryOutput, error)
	// LogRequiresNew appends in an independent transaction that commits on its own.
	LogRequiresNew(ctx context.Context, input dto.LogInput) (dto.EntryOutput, error)
	ListAll(ctx context.Context) ([]dto.EntryOutput, error)
	ListByStatus(ctx context.Context, status string) ([]dto.EntryOutput, error)
	Reset(ctx context.Context) error
}
