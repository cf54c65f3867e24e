package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type LogInput struct {
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
	Status      string
	Message     string
}

type EntryOutput struct {
	ID          int64
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
	Status      string
	Message     string
	CreatedAt   time.Time
}
