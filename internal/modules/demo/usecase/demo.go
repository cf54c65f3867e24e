package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ledgertx/internal/modules/demo/domain"
	demodto "ledgertx/internal/modules/demo/dto"
	demoin "ledgertx/internal/modules/demo/port/in"
	"ledgertx/internal/modules/demo/service"
	ledgerdto "ledgertx/internal/modules/ledger/dto"
	ledgerin "ledgertx/internal/modules/ledger/port/in"
	login "ledgertx/internal/modules/transferlog/port/in"
	"ledgertx/internal/platform/logger"
	"ledgertx/internal/platform/money"
)

type Interactor struct {
	svc    *service.DemoService
	ledger ledgerin.Usecase
	logs   login.Usecase
	log    *logger.Logger
}

func NewInteractor(svc *service.DemoService, ledger ledgerin.Usecase, logs login.Usecase, log *logger.Logger) demoin.Usecase {
	if log == nil {
		log = logger.NewNop()
	}
	return &Interactor{svc: svc, ledger: ledger, logs: logs, log: log.With("module", "demo")}
}

func (i *Interactor) Run(ctx context.Context, input demodto.RunInput) (demodto.RunOutput, error) {
	steps, err := i.svc.Plan(input.From, input.To)
	if err != nil {
		return demodto.RunOutput{}, err
	}
	if err := i.logs.Reset(ctx); err != nil {
		return demodto.RunOutput{}, fmt.Errorf("reset transfer logs: %w", err)
	}
	if err := i.ledger.Reset(ctx); err != nil {
		return demodto.RunOutput{}, fmt.Errorf("reset accounts: %w", err)
	}
	initial, err := i.ledger.Seed(ctx, input.Seed)
	if err != nil {
		return demodto.RunOutput{}, fmt.Errorf("seed accounts: %w", err)
	}

	out := demodto.RunOutput{Initial: initial}
	balances := initial
	logCount := 0
	for _, step := range steps {
		result, err := i.runStep(ctx, step, balances, logCount)
		if err != nil {
			return demodto.RunOutput{}, err
		}
		out.Steps = append(out.Steps, result)
		balances = result.Balances
		logCount = len(result.Logs)
	}
	out.Final = balances
	if n := len(out.Steps); n > 0 {
		out.Logs = out.Steps[n-1].Logs
	}
	i.log.Info("demo finished", "experiments", len(out.Steps), "all_hold", out.AllHold())
	return out, nil
}

func (i *Interactor) runStep(ctx context.Context, step service.Step, before []ledgerdto.AccountOutput, logsBefore int) (demodto.StepOutput, error) {
	input := ledgerdto.TransferInput{
		From:            step.From,
		To:              step.To,
		Amount:          step.Amount,
		SimulateFailure: step.Failure,
	}
	var transferErr error
	switch step.Mode {
	case domain.ModeRequiresNew:
		_, transferErr = i.ledger.TransferWithLogRequiresNew(ctx, input)
	default:
		_, transferErr = i.ledger.TransferWithLogRequired(ctx, input)
	}

	after, err := i.ledger.ListAccounts(ctx)
	if err != nil {
		return demodto.StepOutput{}, fmt.Errorf("experiment %s: list accounts: %w", step.Code, err)
	}
	entries, err := i.logs.ListAll(ctx)
	if err != nil {
		return demodto.StepOutput{}, fmt.Errorf("experiment %s: list logs: %w", step.Code, err)
	}

	outcome := domain.Outcome{
		Failed:          transferErr != nil,
		BalancesChanged: i.svc.BalancesChanged(snapshot(before), snapshot(after)),
		LogsAdded:       len(entries) - logsBefore,
	}
	result := demodto.StepOutput{
		Code:        step.Code,
		Title:       step.Title,
		Propagation: string(step.Mode),
		From:        step.From,
		To:          step.To,
		Amount:      money.Format(step.Amount),
		Failure:     step.Failure,
		Expectation: step.Expectation.String(),
		Holds:       step.Holds(outcome),
		LogsAdded:   outcome.LogsAdded,
		Balances:    after,
		Logs:        entries,
	}
	if transferErr != nil {
		result.Err = transferErr.Error()
	}
	i.log.Debug("experiment finished", "code", step.Code, "holds", result.Holds, "logs_added", outcome.LogsAdded)
	return result, nil
}

func snapshot(accounts []ledgerdto.AccountOutput) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(accounts))
	for _, account := range accounts {
		out[account.Name] = account.Balance
	}
	return out
}

