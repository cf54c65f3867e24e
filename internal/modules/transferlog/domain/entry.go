package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "ledgertx/internal/platform/errors"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusSuccess:
		return StatusSuccess, nil
	case StatusFailed:
		return StatusFailed, nil
	default:
		return "", fmt.Errorf("%w: unknown transfer status %q", apperrors.ErrInvalidInput, raw)
	}
}

// Entry is one immutable transfer log record.
type Entry struct {
	ID          int64
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
	Status      Status
	Message     string
	CreatedAt   time.Time
}
