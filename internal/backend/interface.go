package backend

import (
	"context"
	"time"

	"fintrack/internal/assistant"
	"fintrack/internal/cache"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// CleanupFunc releases the resources a backend holds.
type CleanupFunc func() error

// BackendResult is everything a command needs to serve the ledger.
type BackendResult struct {
	Store  storage.Ledger
	Ledger *services.LedgerService
	// Exporter is nil when no spreadsheet is configured.
	Exporter  sheets.Exporter
	Assistant *assistant.Assistant
	// Caches holds every cache that needs periodic expiry sweeps.
	Caches  *cache.Manager
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Storage
	SQLiteDBPath string
	DatabaseURL  string

	// Occurrence events, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Spreadsheet export, disabled when GoogleSpreadsheetID is empty
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Projection and aggregation
	CatchUpMode   services.CatchUpMode
	CatchUpLimit  int
	Location      *time.Location
	TopCategories int

	// Assistant, rules only when OpenAIAPIKey is empty
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	AssistantCacheSize int
	AssistantCacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
