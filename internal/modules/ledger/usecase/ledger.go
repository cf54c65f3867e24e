package usecase

import (
	"context"
	"errors"
	"fmt"

	"ledgertx/internal/modules/ledger/domain"
	ledgerdto "ledgertx/internal/modules/ledger/dto"
	ledgerin "ledgertx/internal/modules/ledger/port/in"
	ledgerout "ledgertx/internal/modules/ledger/port/out"
	"ledgertx/internal/modules/ledger/service"
	"ledgertx/internal/platform/clock"
	apperrors "ledgertx/internal/platform/errors"
	"ledgertx/internal/platform/id"
	"ledgertx/internal/platform/logger"
	"ledgertx/internal/platform/tx"
)

const (
	statusSuccess = "SUCCESS"
	statusFailed  = "FAILED"

	msgStarted   = "transfer started"
	msgDebited   = "debit succeeded, awaiting credit"
	msgCompleted = "transfer completed"
)

type Interactor struct {
	svc    *service.AccountService
	logs   ledgerout.TransferLogPort
	events ledgerout.EventPublisher
	tx     tx.Manager
	clock  clock.Clock
	ids    id.Generator
	log    *logger.Logger
}

type Deps struct {
	Service *service.AccountService
	Logs    ledgerout.TransferLogPort
	Events  ledgerout.EventPublisher
	Tx      tx.Manager
	Clock   clock.Clock
	IDs     id.Generator
	Log     *logger.Logger
}

func NewInteractor(deps Deps) ledgerin.Usecase {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	i := &Interactor{
		svc:    deps.Service,
		logs:   deps.Logs,
		events: deps.Events,
		tx:     deps.Tx,
		clock:  deps.Clock,
		ids:    deps.IDs,
		log:    log.With("module", "ledger"),
	}
	if i.tx == nil {
		i.tx = tx.NoopManager{}
	}
	if i.clock == nil {
		i.clock = clock.SystemClock{}
	}
	if i.ids == nil {
		i.ids = id.UUID{}
	}
	return i
}

type transfer struct {
	id    string
	mode  domain.LogMode
	input ledgerdto.TransferInput
	log   *logger.Logger
}

func (t transfer) record(status, message string) ledgerout.LogRecord {
	return ledgerout.LogRecord{
		From:    t.input.From,
		To:      t.input.To,
		Amount:  t.input.Amount,
		Status:  status,
		Message: message,
	}
}

func (t transfer) output() ledgerdto.TransferOutput {
	return ledgerdto.TransferOutput{
		TransferID: t.id,
		From:       t.input.From,
		To:         t.input.To,
		Amount:     t.input.Amount,
		LogMode:    string(t.mode),
	}
}

func (i *Interactor) begin(input ledgerdto.TransferInput, mode domain.LogMode) (transfer, error) {
	if err := i.svc.ValidateTransfer(input.From, input.To, input.Amount); err != nil {
		return transfer{}, err
	}
	transferID := i.ids.New()
	t := transfer{
		id:    transferID,
		mode:  mode,
		input: input,
		log:   i.log.With("transfer_id", transferID, "log_mode", string(mode)),
	}
	t.log.Info("transfer requested", "from", input.From, "to", input.To, "amount", input.Amount.StringFixed(2))
	return t, nil
}

func (i *Interactor) finish(t transfer, err error) (ledgerdto.TransferOutput, error) {
	if err != nil {
		t.log.Warn("transfer rolled back", "error", err)
		return ledgerdto.TransferOutput{}, fmt.Errorf("transfer failed: %w", err)
	}
	t.log.Info("transfer committed")
	return t.output(), nil
}

func (i *Interactor) Transfer(ctx context.Context, input ledgerdto.TransferInput) (ledgerdto.TransferOutput, error) {
	t, err := i.begin(input, domain.LogNone)
	if err != nil {
		return ledgerdto.TransferOutput{}, err
	}
	err = i.tx.Run(ctx, tx.Required, func(ctx context.Context) error {
		if err := i.svc.Debit(ctx, input.From, input.Amount); err != nil {
			return err
		}
		if err := i.simulate(t); err != nil {
			return err
		}
		if err := i.svc.Credit(ctx, input.To, input.Amount); err != nil {
			return err
		}
		return i.publishAfterCommit(ctx, t)
	})
	return i.finish(t, err)
}

// TransferWithLogRequired writes its log entries inside the transfer's own
// transaction, so a failed transfer leaves no trace in the log.
func (i *Interactor) TransferWithLogRequired(ctx context.Context, input ledgerdto.TransferInput) (ledgerdto.TransferOutput, error) {
	t, err := i.begin(input, domain.LogRequired)
	if err != nil {
		return ledgerdto.TransferOutput{}, err
	}
	err = i.tx.Run(ctx, tx.Required, func(ctx context.Context) error {
		if err := i.svc.Debit(ctx, input.From, input.Amount); err != nil {
			return err
		}
		if err := i.logs.LogRequired(ctx, t.record(statusSuccess, msgDebited)); err != nil {
			return err
		}
		if err := i.simulate(t); err != nil {
			return err
		}
		if err := i.svc.Credit(ctx, input.To, input.Amount); err != nil {
			return err
		}
		if err := i.logs.LogRequired(ctx, t.record(statusSuccess, msgCompleted)); err != nil {
			return err
		}
		return i.publishAfterCommit(ctx, t)
	})
	return i.finish(t, err)
}

// TransferWithLogRequiresNew writes every log entry in an independent
// transaction. Entries written before a failure, and the FAILED entry itself,
// survive the rollback of the transfer.
func (i *Interactor) TransferWithLogRequiresNew(ctx context.Context, input ledgerdto.TransferInput) (ledgerdto.TransferOutput, error) {
	t, err := i.begin(input, domain.LogRequiresNew)
	if err != nil {
		return ledgerdto.TransferOutput{}, err
	}
	err = i.tx.Run(ctx, tx.Required, func(ctx context.Context) error {
		if err := i.logs.LogRequiresNew(ctx, t.record(statusSuccess, msgStarted)); err != nil {
			return err
		}
		if err := i.moveWithIndependentLog(ctx, t); err != nil {
			failure := t.record(statusFailed, "transfer failed: "+err.Error())
			if logErr := i.logs.LogRequiresNew(ctx, failure); logErr != nil {
				return errors.Join(err, logErr)
			}
			return err
		}
		return i.publishAfterCommit(ctx, t)
	})
	return i.finish(t, err)
}

func (i *Interactor) moveWithIndependentLog(ctx context.Context, t transfer) error {
	if err := i.svc.Debit(ctx, t.input.From, t.input.Amount); err != nil {
		return err
	}
	if err := i.logs.LogRequiresNew(ctx, t.record(statusSuccess, msgDebited)); err != nil {
		return err
	}
	if err := i.simulate(t); err != nil {
		return err
	}
	if err := i.svc.Credit(ctx, t.input.To, t.input.Amount); err != nil {
		return err
	}
	return i.logs.LogRequiresNew(ctx, t.record(statusSuccess, msgCompleted))
}

func (i *Interactor) simulate(t transfer) error {
	if t.input.SimulateFailure == "" {
		return nil
	}
	t.log.Debug("simulating failure before credit", "message", t.input.SimulateFailure)
	return fmt.Errorf("%w: %s", apperrors.ErrSimulatedFailure, t.input.SimulateFailure)
}

// publishAfterCommit defers the event until the owning transaction commits.
// Publish failures are logged and never fail the transfer.
func (i *Interactor) publishAfterCommit(ctx context.Context, t transfer) error {
	if i.events == nil {
		return nil
	}
	return tx.AfterCommit(ctx, func(ctx context.Context) {
		event := domain.TransferEvent{
			Type:        domain.EventTransferCompleted,
			TransferID:  t.id,
			From:        t.input.From,
			To:          t.input.To,
			Amount:      t.input.Amount,
			LogMode:     t.mode,
			CompletedAt: i.clock.Now(),
		}
		if err := i.events.Publish(ctx, event); err != nil {
			t.log.Warn("publish transfer event failed", "error", err)
		}
	})
}

func (i *Interactor) GetAccount(ctx context.Context, name string) (ledgerdto.AccountOutput, error) {
	var account domain.Account
	err := i.tx.Run(ctx, tx.Supports, func(ctx context.Context) error {
		var err error
		account, err = i.svc.Get(ctx, name)
		return err
	})
	if err != nil {
		return ledgerdto.AccountOutput{}, err
	}
	return toAccountOutput(account), nil
}

func (i *Interactor) ListAccounts(ctx context.Context) ([]ledgerdto.AccountOutput, error) {
	var accounts []domain.Account
	err := i.tx.Run(ctx, tx.Supports, func(ctx context.Context) error {
		var err error
		accounts, err = i.svc.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]ledgerdto.AccountOutput, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, toAccountOutput(account))
	}
	return out, nil
}

func (i *Interactor) Seed(ctx context.Context, accounts []ledgerdto.SeedAccount) ([]ledgerdto.AccountOutput, error) {
	seed := make([]domain.Account, 0, len(accounts))
	for _, account := range accounts {
		seed = append(seed, domain.Account{Name: account.Name, Balance: account.Balance})
	}
	if err := i.tx.Run(ctx, tx.Required, func(ctx context.Context) error {
		return i.svc.Seed(ctx, seed)
	}); err != nil {
		return nil, err
	}
	i.log.Info("accounts seeded", "count", len(seed))
	return i.ListAccounts(ctx)
}

func (i *Interactor) Reset(ctx context.Context) error {
	return i.tx.Run(ctx, tx.Required, i.svc.Reset)
}

func toAccountOutput(account domain.Account) ledgerdto.AccountOutput {
	return ledgerdto.AccountOutput{Name: account.Name, Balance: account.Balance}
}
