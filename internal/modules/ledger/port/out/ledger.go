package out

import (
	"context"

	"github.com/shopspring/decimal"

	"ledgertx/internal/modules/ledger/domain"
)

type AccountStore interface {
	// Debit subtracts amount from name. Unless allowNegative is set the
	// update is refused with ErrInsufficientFunds when the balance is short.
	Debit(ctx context.Context, name string, amount decimal.Decimal, allowNegative bool) error
	Credit(ctx context.Context, name string, amount decimal.Decimal) error
	Get(ctx context.Context, name string) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Upsert(ctx context.Context, account domain.Account) error
	Reset(ctx context.Context) error
}

// LogRecord is one transfer step handed to the transfer log.
type LogRecord struct {
	From    string
	To      string
	Amount  decimal.Decimal
	Status  string
	Message string
}

type TransferLogPort interface {
	LogRequired(ctx context.Context, record LogRecord) error
	LogRequiresNew(ctx context.Context, record LogRecord) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.TransferEvent) error
}
