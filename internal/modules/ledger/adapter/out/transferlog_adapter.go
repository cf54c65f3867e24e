package out

import (
	"context"

	ledgerout "ledgertx/internal/modules/ledger/port/out"
	logdto "ledgertx/internal/modules/transferlog/dto"
	login "ledgertx/internal/modules/transferlog/port/in"
)

type TransferLogAdapter struct {
	logs login.Usecase
}

func NewTransferLogAdapter(logs login.Usecase) ledgerout.TransferLogPort {
	return &TransferLogAdapter{logs: logs}
}

func (a *TransferLogAdapter) LogRequired(ctx context.Context, record ledgerout.LogRecord) error {
	_, err := a.logs.LogRequired(ctx, toLogInput(record))
	return err
}

func (a *TransferLogAdapter) LogRequiresNew(ctx context.Context, record ledgerout.LogRecord) error {
	_, err := a.logs.LogRequiresNew(ctx, toLogInput(record))
	return err
}

func toLogInput(record ledgerout.LogRecord) logdto.LogInput {
	return logdto.LogInput{
		FromAccount: record.From,
		ToAccount:   record.To,
		Amount:      record.Amount,
		Status:      record.Status,
		Message:     record.Message,
	}
}
