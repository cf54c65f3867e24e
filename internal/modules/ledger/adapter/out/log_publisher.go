package out

import (
	"context"

	"ledgertx/internal/modules/ledger/domain"
	ledgerout "ledgertx/internal/modules/ledger/port/out"
	"ledgertx/internal/platform/logger"
)

// LogPublisher writes events to the application log when no broker is
// configured.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) ledgerout.EventPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.TransferEvent) error {
	p.log.Info("event published",
		"type", event.Type,
		"transfer_id", event.TransferID,
		"from", event.From,
		"to", event.To,
		"amount", event.Amount.StringFixed(2),
		"log_mode", string(event.LogMode),
	)
	return nil
}
