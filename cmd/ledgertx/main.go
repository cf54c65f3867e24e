package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ledgertx/internal/bootstrap"
	ledgerdto "ledgertx/internal/modules/ledger/dto"
	"ledgertx/internal/platform/config"
	"ledgertx/internal/platform/logger"
	"ledgertx/internal/ui/views/report"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	dataDir    string
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "ledgertx",
		Short:         "Ledger demonstrating transaction propagation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", ".", "directory holding the ledger databases")
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default <data-dir>/ledgertx.yaml when present)")

	root.AddCommand(newSeedCmd(opts))
	root.AddCommand(newAccountsCmd(opts))
	root.AddCommand(newAccountCmd(opts))
	root.AddCommand(newTransferCmd(opts))
	root.AddCommand(newLogsCmd(opts))
	root.AddCommand(newDemoCmd(opts))
	root.AddCommand(newResetCmd(opts))
	return root
}

// withApp loads config, builds the logger and application, runs fn and
// releases everything afterwards.
func withApp(cmd *cobra.Command, opts *options, fn func(context.Context, config.Config, *bootstrap.App) error) (err error) {
	cfg, err := config.Load(opts.dataDir, opts.configFile)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, cfg, app)
}

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create or reset the configured seed accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, cfg config.Config, app *bootstrap.App) error {
				accounts, err := app.LedgerCLI.Seed(ctx, cfg.Ledger.Seed)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), report.Accounts(accounts))
				return nil
			})
		},
	}
}

func newAccountsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts and balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, _ config.Config, app *bootstrap.App) error {
				accounts, err := app.LedgerCLI.Accounts(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), report.Accounts(accounts))
				return nil
			})
		},
	}
}

func newAccountCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "account <name>",
		Short: "Show one account's balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, _ config.Config, app *bootstrap.App) error {
				account, err := app.LedgerCLI.Account(ctx, args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), report.Accounts([]ledgerdto.AccountOutput{account}))
				return nil
			})
		},
	}
}

func newTransferCmd(opts *options) *cobra.Command {
	var from, to, amount, logMode, fail string

	cmd := &cobra.Command{
		Use:   "transfer --from <account> --to <account> --amount <amount>",
		Short: "Move money between two accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" || strings.TrimSpace(amount) == "" {
				return fmt.Errorf("--from, --to and --amount are required")
			}
			return withApp(cmd, opts, func(ctx context.Context, _ config.Config, app *bootstrap.App) error {
				out, err := app.LedgerCLI.Transfer(ctx, from, to, amount, logMode, fail)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), report.Transfer(out))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "account to debit")
	cmd.Flags().StringVar(&to, "to", "", "account to credit")
	cmd.Flags().StringVar(&amount, "amount", "", "amount with at most two decimal places")
	cmd.Flags().StringVar(&logMode, "log", "none", "transfer logging: none|required|requires-new")
	cmd.Flags().StringVar(&fail, "fail", "", "abort after the debit with this message")
	return cmd
}

func newLogsCmd(opts *options) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List transfer log entries, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, _ config.Config, app *bootstrap.App) error {
				entries, err := app.LogCLI.List(ctx, status)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), report.Logs(entries))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only entries with this status: SUCCESS|FAILED")
	return cmd
}

func newDemoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Reseed and run the REQUIRED vs REQUIRES_NEW experiments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, cfg config.Config, app *bootstrap.App) error {
				run, err := app.DemoCLI.Run(ctx, cfg.Ledger.Seed)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprint(cmd.OutOrStdout(), report.Demo(run))
				if !run.AllHold() {
					return fmt.Errorf("demo: at least one experiment did not behave as expected")
				}
				return nil
			})
		},
	}
}

func newResetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete all transfer log entries and accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, _ config.Config, app *bootstrap.App) error {
				if err := app.LogCLI.Reset(ctx); err != nil {
					return err
				}
				if err := app.LedgerCLI.Reset(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ledger reset")
				return nil
			})
		},
	}
}
