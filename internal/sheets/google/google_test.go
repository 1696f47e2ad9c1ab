package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"fintrack/internal/core"
)

type appendCall struct {
	path  string
	query string
	rows  [][]any
}

func fakeSheets(t *testing.T, status int) (*httptest.Server, *[]appendCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []appendCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		mu.Lock()
		calls = append(calls, appendCall{path: r.URL.Path, query: r.URL.RawQuery, rows: body.Values})
		mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-id",
			"updates":       map[string]any{"updatedRange": "Transactions!A2:G2", "updatedRows": len(body.Values)},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestExporter(t *testing.T, srv *httptest.Server) *Exporter {
	t.Helper()
	e, err := New(context.Background(),
		Config{SpreadsheetID: "sheet-id", SheetName: "Transactions"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	require.NoError(t, err)
	return e
}

func sampleTxs(n int) []core.Transaction {
	out := make([]core.Transaction, n)
	for i := range out {
		out[i] = core.Transaction{
			ID:            int64(i + 1),
			UserID:        1,
			Amount:        decimal.RequireFromString("12.5"),
			Category:      "food",
			Description:   "lunch",
			OccurredOn:    core.NewDate(2024, time.March, 1),
			PaymentMethod: "card",
			Recurrence:    core.RecurrenceNone,
		}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())

	_, err = New(context.Background(), Config{SpreadsheetID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")

	_, err = New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/does/not/exist.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestExportTransactions_SingleChunk(t *testing.T) {
	srv, calls := fakeSheets(t, http.StatusOK)
	e := newTestExporter(t, srv)

	n, err := e.ExportTransactions(context.Background(), sampleTxs(3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.True(t, strings.HasSuffix(call.path, ":append"), call.path)
	assert.Contains(t, call.path, "/v4/spreadsheets/sheet-id/values/")
	assert.Contains(t, call.query, "valueInputOption=USER_ENTERED")
	require.Len(t, call.rows, 3)
	assert.Equal(t, []any{"2024-03-01", "food", "lunch", "12.50", "card", "none", float64(1)}, call.rows[0])
}

func TestExportTransactions_Chunks(t *testing.T) {
	srv, calls := fakeSheets(t, http.StatusOK)
	e := newTestExporter(t, srv)

	n, err := e.ExportTransactions(context.Background(), sampleTxs(ChunkSize*2+1))
	require.NoError(t, err)
	assert.Equal(t, ChunkSize*2+1, n)

	require.Len(t, *calls, 3)
	assert.Len(t, (*calls)[0].rows, ChunkSize)
	assert.Len(t, (*calls)[1].rows, ChunkSize)
	assert.Len(t, (*calls)[2].rows, 1)
}

func TestExportTransactions_Empty(t *testing.T) {
	srv, calls := fakeSheets(t, http.StatusOK)
	e := newTestExporter(t, srv)

	n, err := e.ExportTransactions(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, *calls)
}

func TestExportTransactions_APIError(t *testing.T) {
	srv, _ := fakeSheets(t, http.StatusInternalServerError)
	e := newTestExporter(t, srv)

	n, err := e.ExportTransactions(context.Background(), sampleTxs(2))
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "append rows 1-2")
}

func TestAppendRange(t *testing.T) {
	tests := []struct {
		sheet string
		want  string
	}{
		{"Transactions", "'Transactions'!A:G"},
		{"2024 Expenses", "'2024 Expenses'!A:G"},
		{"Bob's", "'Bob''s'!A:G"},
	}
	for _, tt := range tests {
		t.Run(tt.sheet, func(t *testing.T) {
			assert.Equal(t, tt.want, (&Exporter{sheetName: tt.sheet}).appendRange())
		})
	}
}
