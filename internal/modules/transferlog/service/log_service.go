package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ledgertx/internal/modules/transferlog/domain"
	logout "ledgertx/internal/modules/transferlog/port/out"
	"ledgertx/internal/platform/clock"
	apperrors "ledgertx/internal/platform/errors"
)

type LogService struct {
	clock clock.Clock
	store logout.EntryStore
}

func NewLogService(clock clock.Clock, store logout.EntryStore) *LogService {
	return &LogService{clock: clock, store: store}
}

// Record builds and stores an entry. CreatedAt always comes from the clock.
func (s *LogService) Record(ctx context.Context, from, to string, amount decimal.Decimal, status, message string) (domain.Entry, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return domain.Entry{}, fmt.Errorf("%w: from and to accounts are required", apperrors.ErrInvalidInput)
	}
	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Entry{}, err
	}
	entry := domain.Entry{
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
		Status:      parsed,
		Message:     message,
		CreatedAt:   s.clock.Now(),
	}
	id, err := s.store.Insert(ctx, entry)
	if err != nil {
		return domain.Entry{}, err
	}
	entry.ID = id
	return entry, nil
}

func (s *LogService) ListAll(ctx context.Context) ([]domain.Entry, error) {
	return s.store.ListAll(ctx)
}

func (s *LogService) ListByStatus(ctx context.Context, status string) ([]domain.Entry, error) {
	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.store.ListByStatus(ctx, parsed)
}

func (s *LogService) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}
