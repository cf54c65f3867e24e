package bootstrap

import (
	"context"
	"errors"
	"fmt"

	demoinadapter "ledgertx/internal/modules/demo/adapter/in"
	demoservice "ledgertx/internal/modules/demo/service"
	demousecase "ledgertx/internal/modules/demo/usecase"
	ledgerinadapter "ledgertx/internal/modules/ledger/adapter/in"
	ledgeroutadapter "ledgertx/internal/modules/ledger/adapter/out"
	ledgerout "ledgertx/internal/modules/ledger/port/out"
	ledgerservice "ledgertx/internal/modules/ledger/service"
	ledgerusecase "ledgertx/internal/modules/ledger/usecase"
	loginadapter "ledgertx/internal/modules/transferlog/adapter/in"
	logoutadapter "ledgertx/internal/modules/transferlog/adapter/out"
	logout "ledgertx/internal/modules/transferlog/port/out"
	logservice "ledgertx/internal/modules/transferlog/service"
	logusecase "ledgertx/internal/modules/transferlog/usecase"
	"ledgertx/internal/platform/clock"
	"ledgertx/internal/platform/config"
	"ledgertx/internal/platform/id"
	"ledgertx/internal/platform/logger"
	"ledgertx/internal/platform/pgdb"
	"ledgertx/internal/platform/sqlitedb"
	"ledgertx/internal/platform/tx"
)

type App struct {
	LedgerCLI ledgerinadapter.CLIHandler
	LogCLI    loginadapter.CLIHandler
	DemoCLI   demoinadapter.CLIHandler

	closers []func() error
}

// Close releases the broker connection and the database, in that order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type storage struct {
	backend  tx.Backend
	accounts ledgerout.AccountStore
	entries  logout.EntryStore
	close    func() error
}

func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	app := &App{}
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, store.close)

	events, err := newPublisher(cfg, log)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	if closer, ok := events.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}

	clk := clock.SystemClock{}
	executor := tx.NewExecutor(store.backend, log)

	logUC := logusecase.NewInteractor(logservice.NewLogService(clk, store.entries), executor, log)
	ledgerUC := ledgerusecase.NewInteractor(ledgerusecase.Deps{
		Service: ledgerservice.NewAccountService(store.accounts, cfg.Ledger.AllowNegativeBalance),
		Logs:    ledgeroutadapter.NewTransferLogAdapter(logUC),
		Events:  events,
		Tx:      executor,
		Clock:   clk,
		IDs:     id.UUID{},
		Log:     log,
	})
	demoUC := demousecase.NewInteractor(demoservice.NewDemoService(), ledgerUC, logUC, log)

	app.LedgerCLI = ledgerinadapter.NewCLIHandler(ledgerUC)
	app.LogCLI = loginadapter.NewCLIHandler(logUC)
	app.DemoCLI = demoinadapter.NewCLIHandler(demoUC)
	log.Debug("application wired", "driver", cfg.Driver)
	return app, nil
}

func openStorage(ctx context.Context, cfg config.Config) (storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := pgdb.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return storage{}, err
		}
		accounts, err := ledgeroutadapter.NewPostgresAccountStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return storage{}, fmt.Errorf("new account store: %w", err)
		}
		entries, err := logoutadapter.NewPostgresEntryStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return storage{}, fmt.Errorf("new transfer log store: %w", err)
		}
		return storage{backend: db, accounts: accounts, entries: entries, close: db.Close}, nil
	default:
		db, err := sqlitedb.Open(cfg.SQLite.Path, cfg.SQLite.AuditPath, cfg.SQLite.BusyTimeoutMS)
		if err != nil {
			return storage{}, err
		}
		accounts, err := ledgeroutadapter.NewSQLiteAccountStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return storage{}, fmt.Errorf("new account store: %w", err)
		}
		entries, err := logoutadapter.NewSQLiteEntryStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return storage{}, fmt.Errorf("new transfer log store: %w", err)
		}
		return storage{backend: db, accounts: accounts, entries: entries, close: db.Close}, nil
	}
}

func newPublisher(cfg config.Config, log *logger.Logger) (ledgerout.EventPublisher, error) {
	if cfg.Events.AMQPURL == "" {
		return ledgeroutadapter.NewLogPublisher(log), nil
	}
	publisher, err := ledgeroutadapter.DialRabbitMQ(cfg.Events.AMQPURL, cfg.Events.Exchange, log)
	if err != nil {
		return nil, fmt.Errorf("new event publisher: %w", err)
	}
	return publisher, nil
}
