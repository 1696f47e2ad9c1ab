package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func newProjectCommand(a *app) *cobra.Command {
	var (
		userID int64
		mode   string
	)
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Materialise due recurring transactions",
		Long: `Run one projection pass, for a single user or for every user in the store.

Example:
  fintrack project
  fintrack project --user 1 --mode exhaustive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var override services.CatchUpMode
			if cmd.Flags().Changed("mode") {
				m, err := services.ParseCatchUpMode(mode)
				if err != nil {
					return err
				}
				override = m
			}

			res, err := OpenBackend(ctx, a.logger, a.cfg, func(c *backend.Config) {
				if override != "" {
					c.CatchUpMode = override
				}
			})
			if err != nil {
				return err
			}
			defer res.Cleanup()

			projector := res.Ledger.Projector()
			today := res.Ledger.Today()

			if userID > 0 {
				created, err := projector.Project(ctx, userID, today)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %d: %d occurrence(s) created\n", userID, len(created))
				return nil
			}

			n, err := projector.ProjectAll(ctx, today, a.cfg.ProjectConcurrency)
			a.logger.Info("Projection run finished",
				log.FieldOperation, log.OpProject,
				log.FieldCatchUpMode, string(projector.Mode()),
				log.FieldCount, n)
			fmt.Fprintf(cmd.OutOrStdout(), "%d occurrence(s) created\n", n)
			return err
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "project a single user (default: all users)")
	cmd.Flags().StringVar(&mode, "mode", "", "catch-up mode: single or exhaustive (default from CATCH_UP_MODE)")
	return cmd
}
