package out

import (
	"context"

	"ledgertx/internal/modules/transferlog/domain"
)

// EntryStore persists log entries. List methods return newest first.
type EntryStore interface {
	Insert(ctx context.Context, entry domain.Entry) (int64, error)
	ListAll(ctx context.Context) ([]domain.Entry, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Entry, error)
	Reset(ctx context.Context) error
}
