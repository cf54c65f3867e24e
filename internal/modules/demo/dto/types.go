package dto

import (
	ledgerdto "ledgertx/internal/modules/ledger/dto"
	logdto "ledgertx/internal/modules/transferlog/dto"
)

type RunInput struct {
	// From and To name the two seeded accounts; REQUIRES_NEW experiments
	// transfer in the reverse direction.
	From string
	To   string
	Seed []ledgerdto.SeedAccount
}

type StepOutput struct {
	Code        string
	Title       string
	Propagation string
	From        string
	To          string
	Amount      string
	Failure     string
	Err         string
	Expectation string
	Holds       bool
	LogsAdded   int
	Balances    []ledgerdto.AccountOutput
	Logs        []logdto.EntryOutput
}

type RunOutput struct {
	Initial []ledgerdto.AccountOutput
	Steps   []StepOutput
	Final   []ledgerdto.AccountOutput
	Logs    []logdto.EntryOutput
}

// AllHold reports whether every experiment behaved as expected.
func (r RunOutput) AllHold() bool {
	for _, step := range r.Steps {
		if !step.Holds {
			return false
		}
	}
	return true
}
