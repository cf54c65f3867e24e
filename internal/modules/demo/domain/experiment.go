package domain

import "github.com/shopspring/decimal"

type Mode string

const (
	ModeRequired    Mode = "REQUIRED"
	ModeRequiresNew Mode = "REQUIRES_NEW"
)

// Expectation is what an experiment should leave behind.
type Expectation int

const (
	// ExpectCommitted: balances move and the step's log entries persist.
	ExpectCommitted Expectation = iota
	// ExpectRolledBackWithoutLogs: balances are untouched and no entry survives.
	ExpectRolledBackWithoutLogs
	// ExpectRolledBackWithLogs: balances are untouched but entries survive.
	ExpectRolledBackWithLogs
)

func (e Expectation) String() string {
	switch e {
	case ExpectRolledBackWithoutLogs:
		return "transfer and its log entries roll back together"
	case ExpectRolledBackWithLogs:
		return "transfer rolls back, independently committed log entries survive"
	default:
		return "transfer and its log entries commit"
	}
}

type Experiment struct {
	Code        string
	Title       string
	Mode        Mode
	Reverse     bool
	Amount      decimal.Decimal
	Failure     string
	Expectation Expectation
}

// Outcome is what the demo observed after running one experiment.
type Outcome struct {
	Failed          bool
	BalancesChanged bool
	LogsAdded       int
}

// Holds reports whether the observed outcome matches the expectation.
func (e Experiment) Holds(o Outcome) bool {
	switch e.Expectation {
	case ExpectRolledBackWithoutLogs:
		return o.Failed && !o.BalancesChanged && o.LogsAdded == 0
	case ExpectRolledBackWithLogs:
		return o.Failed && !o.BalancesChanged && o.LogsAdded > 0
	default:
		return !o.Failed && o.BalancesChanged && o.LogsAdded > 0
	}
}

// Experiments returns the four propagation experiments in run order. The
// REQUIRES_NEW ones move money in the opposite direction.
func Experiments() []Experiment {
	return []Experiment{
		{
			Code:        "1.1",
			Title:       "REQUIRED logging, transfer succeeds",
			Mode:        ModeRequired,
			Amount:      decimal.NewFromInt(100),
			Expectation: ExpectCommitted,
		},
		{
			Code:        "1.2",
			Title:       "REQUIRED logging, transfer fails before credit",
			Mode:        ModeRequired,
			Amount:      decimal.NewFromInt(100),
			Failure:     "network timeout",
			Expectation: ExpectRolledBackWithoutLogs,
		},
		{
			Code:        "2.1",
			Title:       "REQUIRES_NEW logging, transfer succeeds",
			Mode:        ModeRequiresNew,
			Reverse:     true,
			Amount:      decimal.NewFromInt(200),
			Expectation: ExpectCommitted,
		},
		{
			Code:        "2.2",
			Title:       "REQUIRES_NEW logging, transfer fails before credit",
			Mode:        ModeRequiresNew,
			Reverse:     true,
			Amount:      decimal.NewFromInt(200),
			Failure:     "database connection lost",
			Expectation: ExpectRolledBackWithLogs,
		},
	}
}
