package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func fakeOpenAI(t *testing.T, status int, content string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model          string         `json:"model"`
			ResponseFormat map[string]any `json:"response_format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseFormat["type"] != "json_object" {
			http.Error(w, `{"error":{"message":"json mode expected"}}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestOpenAI(srv *httptest.Server) *OpenAIClassifier {
	return NewOpenAIClassifier(OpenAIConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL + "/v1",
		CacheSize: 8,
		CacheTTL:  time.Minute,
	}, nil)
}

func TestOpenAIClassifier_ParsesAndCaches(t *testing.T) {
	srv, calls := fakeOpenAI(t, http.StatusOK,
		`{"intent":"set_budget","month":"2024-05","category":null,"amount":800}`)
	c := newTestOpenAI(srv)
	ctx := context.Background()

	got, err := c.Classify(ctx, "Set my  budget to 800 for May 2024")
	require.NoError(t, err)
	assert.Equal(t, IntentSetBudget, got.Intent)
	assert.Equal(t, core.Month{Year: 2024, Month: time.May}, got.Month)
	require.True(t, got.Amount.Valid)
	assert.Equal(t, "800", got.Amount.Decimal.String())

	_, err = c.Classify(ctx, "set my budget to 800 for may 2024")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls), "normalised repeat should hit the cache")
}

func TestOpenAIClassifier_FallsBackToRules(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{"api error", http.StatusInternalServerError, ""},
		{"not json", http.StatusOK, "total please"},
		{"unknown intent", http.StatusOK, `{"intent":"book_flight"}`},
		{"bad month", http.StatusOK, `{"intent":"total_for_month","month":"May"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := fakeOpenAI(t, tt.status, tt.content)
			c := newTestOpenAI(srv)

			got, err := c.Classify(context.Background(), "what is my highest expense")
			require.NoError(t, err)
			assert.Equal(t, IntentHighestThisMonth, got.Intent)
			assert.Zero(t, c.cache.Size(), "fallback answers are not cached")
		})
	}
}

func TestParseModelReply(t *testing.T) {
	tests := []struct {
		content string
		want    Classification
		wantErr bool
	}{
		{
			content: `{"intent":"list_by_category","category":" food ","month":null,"amount":null}`,
			want:    Classification{Intent: IntentListByCategory, Category: "food"},
		},
		{
			content: `{"intent":"TOTAL_FOR_MONTH","month":"2023-12"}`,
			want:    Classification{Intent: IntentTotalForMonth, Month: core.Month{Year: 2023, Month: time.December}},
		},
		{content: `{"intent":"set_budget","amount":-5}`, want: Classification{Intent: IntentSetBudget}},
		{content: `{"intent":""}`, wantErr: true},
		{content: `[]`, wantErr: true},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			got, err := parseModelReply(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Intent, got.Intent)
			assert.Equal(t, tt.want.Month, got.Month)
			assert.Equal(t, tt.want.Category, got.Category)
			assert.Equal(t, tt.want.Amount.Valid, got.Amount.Valid)
		})
	}
}
