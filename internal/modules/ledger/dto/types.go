package dto

import "github.com/shopspring/decimal"

type TransferInput struct {
	From   string
	To     string
	Amount decimal.Decimal
	// SimulateFailure, when set, aborts the transfer after the debit with
	// this message.
	SimulateFailure string
}

type TransferOutput struct {
	TransferID string
	From       string
	To         string
	Amount     decimal.Decimal
	LogMode    string
}

type AccountOutput struct {
	Name    string
	Balance decimal.Decimal
}

type SeedAccount struct {
	Name    string
	Balance decimal.Decimal
}
