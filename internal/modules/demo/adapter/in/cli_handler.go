package in

import (
	"context"

	demodto "ledgertx/internal/modules/demo/dto"
	demoin "ledgertx/internal/modules/demo/port/in"
	ledgerdto "ledgertx/internal/modules/ledger/dto"
	"ledgertx/internal/platform/config"
	"ledgertx/internal/platform/money"
)

type CLIHandler struct {
	usecase demoin.Usecase
}

func NewCLIHandler(usecase demoin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

// Run uses the first two configured seed accounts as the demo pair.
func (h CLIHandler) Run(ctx context.Context, seeds []config.SeedAccount) (demodto.RunOutput, error) {
	input := demodto.RunInput{}
	for _, seed := range seeds {
		balance, err := money.Parse(seed.Balance)
		if err != nil {
			return demodto.RunOutput{}, err
		}
		input.Seed = append(input.Seed, ledgerdto.SeedAccount{Name: seed.Name, Balance: balance})
	}
	if len(seeds) > 0 {
		input.From = seeds[0].Name
	}
	if len(seeds) > 1 {
		input.To = seeds[1].Name
	}
	return h.usecase.Run(ctx, input)
}
