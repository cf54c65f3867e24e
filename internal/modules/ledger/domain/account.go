package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "ledgertx/internal/platform/errors"
)

type Account struct {
	Name    string
	Balance decimal.Decimal
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: account name is required", apperrors.ErrInvalidInput)
	}
	return nil
}

// LogMode selects how a transfer records its steps in the transfer log.
type LogMode string

const (
	LogNone        LogMode = "none"
	LogRequired    LogMode = "required"
	LogRequiresNew LogMode = "requires-new"
)

const EventTransferCompleted = "transfer.completed"

// TransferEvent is published once a transfer's transaction has committed.
type TransferEvent struct {
	Type        string          `json:"type"`
	TransferID  string          `json:"transfer_id"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Amount      decimal.Decimal `json:"amount"`
	LogMode     LogMode         `json:"log_mode"`
	CompletedAt time.Time       `json:"completed_at"`
}
