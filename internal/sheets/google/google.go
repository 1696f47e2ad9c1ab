// Package google exports ledger rows to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/log"
	ports "fintrack/internal/sheets"
)

// ChunkSize is the maximum number of rows sent in one append call.
const ChunkSize = 500

var _ ports.Exporter = (*Exporter)(nil)

// Config selects the target spreadsheet and the service-account credentials.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New builds an exporter authenticated with the configured service account.
// Extra options are appended after the credentials.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	var clientOpts []goption.ClientOption
	if len(opts) == 0 {
		creds, err := credentials(cfg)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts,
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = "Transactions"
	}
	slog.InfoContext(ctx, "Google Sheets exporter ready",
		log.FieldComponent, log.ComponentSheets,
		"sheet", name)

	return &Exporter{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: name}, nil
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

// ExportTransactions appends one row per transaction, ChunkSize rows per request.
// On failure the returned count says how many rows made it before the error.
func (e *Exporter) ExportTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	if e.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	written := 0
	for start := 0; start < len(txs); start += ChunkSize {
		end := min(start+ChunkSize, len(txs))

		values := make([][]any, 0, end-start)
		for _, t := range txs[start:end] {
			values = append(values, ports.Row(t))
		}

		resp, err := e.svc.Spreadsheets.Values.
			Append(e.spreadsheetID, e.appendRange(), &gsheet.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		if err != nil {
			return written, fmt.Errorf("append rows %d-%d to %s: %w", start+1, end, e.sheetName, err)
		}

		written += end - start
		ref := ""
		if resp.Updates != nil {
			ref = resp.Updates.UpdatedRange
		}
		slog.DebugContext(ctx, "Appended rows to Google Sheets",
			log.FieldComponent, log.ComponentSheets,
			log.FieldCount, end-start,
			log.FieldSheetsRef, ref)
	}

	slog.InfoContext(ctx, "Exported transactions to Google Sheets",
		log.FieldComponent, log.ComponentSheets,
		log.FieldOperation, log.OpExport,
		log.FieldCount, written)
	return written, nil
}

func (e *Exporter) appendRange() string {
	return fmt.Sprintf("'%s'!A:G", strings.ReplaceAll(e.sheetName, "'", "''"))
}
