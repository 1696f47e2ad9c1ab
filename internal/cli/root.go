package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/config"
	"fintrack/internal/log"
)

// app carries state shared by every subcommand once the root pre-run has executed.
type app struct {
	envFile string
	debug   bool

	logger *log.Logger
	cfg    *config.Config
}

// NewRootCommand assembles the fintrack command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "fintrack",
		Short: "Personal expense ledger with recurring transactions",
		Long: `fintrack records expenses, materialises recurring ones on demand and
reports totals, monthly breakdowns and budget status per user.

Example:
  fintrack serve
  fintrack project --mode exhaustive
  fintrack summary --user 1
  fintrack budget-status --user 1 --month 2024-02`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "file with environment variables to load")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServeCommand(a),
		newProjectCommand(a),
		newSummaryCommand(a),
		newBudgetStatusCommand(a),
		newExportSheetsCommand(a),
		newWorkerCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if err := LoadEnvFile(a.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger, err := SetupLogger(cfg.LogLevel, cfg.LogFormat, a.debug)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// Execute runs the command line until the process is interrupted or the command returns.
func Execute() error {
	ctx, stop := SignalContext(context.Background())
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}
