package usecase

import (
	"context"

	"ledgertx/internal/modules/transferlog/domain"
	logdto "ledgertx/internal/modules/transferlog/dto"
	login "ledgertx/internal/modules/transferlog/port/in"
	"ledgertx/internal/modules/transferlog/service"
	"ledgertx/internal/platform/logger"
	"ledgertx/internal/platform/tx"
)

type Interactor struct {
	svc *service.LogService
	tx  tx.Manager
	log *logger.Logger
}

func NewInteractor(svc *service.LogService, txm tx.Manager, log *logger.Logger) login.Usecase {
	if log == nil {
		log = logger.NewNop()
	}
	return &Interactor{svc: svc, tx: txm, log: log.With("module", "transferlog")}
}

func (i *Interactor) LogRequired(ctx context.Context, input logdto.LogInput) (logdto.EntryOutput, error) {
	return i.record(ctx, tx.Required, input)
}

func (i *Interactor) LogRequiresNew(ctx context.Context, input logdto.LogInput) (logdto.EntryOutput, error) {
	return i.record(ctx, tx.RequiresNew, input)
}

func (i *Interactor) record(ctx context.Context, propagation tx.Propagation, input logdto.LogInput) (logdto.EntryOutput, error) {
	var entry domain.Entry
	err := i.tx.Run(ctx, propagation, func(ctx context.Context) error {
		var err error
		entry, err = i.svc.Record(ctx, input.FromAccount, input.ToAccount, input.Amount, input.Status, input.Message)
		return err
	})
	if err != nil {
		return logdto.EntryOutput{}, err
	}
	i.log.Debug("transfer log recorded",
		"propagation", propagation.String(),
		"entry_id", entry.ID,
		"status", string(entry.Status),
		"from", entry.FromAccount,
		"to", entry.ToAccount,
	)
	return toOutput(entry), nil
}

func (i *Interactor) ListAll(ctx context.Context) ([]logdto.EntryOutput, error) {
	var entries []domain.Entry
	err := i.tx.Run(ctx, tx.Supports, func(ctx context.Context) error {
		var err error
		entries, err = i.svc.ListAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toOutputs(entries), nil
}

func (i *Interactor) ListByStatus(ctx context.Context, status string) ([]logdto.EntryOutput, error) {
	var entries []domain.Entry
	err := i.tx.Run(ctx, tx.Supports, func(ctx context.Context) error {
		var err error
		entries, err = i.svc.ListByStatus(ctx, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toOutputs(entries), nil
}

func (i *Interactor) Reset(ctx context.Context) error {
	return i.tx.Run(ctx, tx.Required, i.svc.Reset)
}

func toOutputs(entries []domain.Entry) []logdto.EntryOutput {
	out := make([]logdto.EntryOutput, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toOutput(entry))
	}
	return out
}

func toOutput(entry domain.Entry) logdto.EntryOutput {
	return logdto.EntryOutput{
		ID:          entry.ID,
		FromAccount: entry.FromAccount,
		ToAccount:   entry.ToAccount,
		Amount:      entry.Amount,
		Status:      string(entry.Status),
		Message:     entry.Message,
		CreatedAt:   entry.CreatedAt,
	}
}
