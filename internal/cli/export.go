package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

var errSheetsDisabled = errors.New("spreadsheet export is not configured: set GOOGLE_SPREADSHEET_ID")

func newExportSheetsCommand(a *app) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "export-sheets",
		Short: "Append a user's ledger to the configured Google spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errNoUser
			}
			if !a.cfg.SheetsEnabled() {
				return errSheetsDisabled
			}
			ctx := cmd.Context()

			res, err := OpenBackend(ctx, a.logger, a.cfg, nil)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			txs, err := res.Ledger.ListWithProjection(ctx, userID)
			if err != nil {
				return err
			}
			n, err := res.Exporter.ExportTransactions(ctx, txs)
			if err != nil {
				return core.Fail(log.OpExport, userID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d row(s) for user %d\n", n, userID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	return cmd
}
