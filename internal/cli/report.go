package cli

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
)

var errNoUser = errors.New("--user must be a positive user id")

func newSummaryCommand(a *app) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a user's all-time summary as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errNoUser
			}
			res, err := OpenBackend(cmd.Context(), a.logger, a.cfg, nil)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			sum, err := res.Ledger.Summary(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), apphttp.NewSummaryView(sum))
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	return cmd
}

func newBudgetStatusCommand(a *app) *cobra.Command {
	var (
		userID int64
		month  string
	)
	cmd := &cobra.Command{
		Use:   "budget-status",
		Short: "Print a user's budget status for a month as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errNoUser
			}
			res, err := OpenBackend(cmd.Context(), a.logger, a.cfg, nil)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			m := res.Ledger.Today().Period()
			if month != "" {
				if m, err = core.ParseMonth(month); err != nil {
					return err
				}
			}
			status, err := res.Ledger.BudgetStatus(cmd.Context(), userID, m)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), apphttp.NewBudgetStatusView(status))
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
