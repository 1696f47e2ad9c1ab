package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/assistant"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
	"fintrack/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentApp)}
}

// CreateBackend opens the store and assembles the services around it.
// AMQP problems are logged and the backend continues without events; every
// other failure is returned.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.OpenStore(ctx, config)
	if err != nil {
		return nil, err
	}
	cleanups := []CleanupFunc{store.Close}

	projectorOpts := []services.ProjectorOption{
		services.WithCatchUpMode(config.CatchUpMode),
		services.WithCatchUpLimit(config.CatchUpLimit),
	}
	amqpEnabled := false
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without occurrence events",
				log.FieldError, err.Error(),
				log.FieldErrorType, log.ErrorTypeNetwork)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			projectorOpts = append(projectorOpts, services.WithPublisher(client))
			cleanups = append(cleanups, client.Close)
			amqpEnabled = true
		}
	}

	exporter, err := f.NewExporter(ctx, config)
	if err != nil {
		_ = runCleanups(cleanups)
		return nil, err
	}

	projector := services.NewProjector(store, projectorOpts...)
	ledgerOpts := []services.LedgerOption{services.WithTopCategories(config.TopCategories)}
	if config.Location != nil {
		ledgerOpts = append(ledgerOpts, services.WithLocation(config.Location))
	}
	ledger := services.NewLedgerService(store, projector, ledgerOpts...)

	caches := cache.NewManager()
	var classifier assistant.Classifier = assistant.NewRulesClassifier()
	if config.OpenAIAPIKey != "" {
		llm := assistant.NewOpenAIClassifier(assistant.OpenAIConfig{
			APIKey:    config.OpenAIAPIKey,
			Model:     config.OpenAIModel,
			BaseURL:   config.OpenAIBaseURL,
			CacheSize: config.AssistantCacheSize,
			CacheTTL:  config.AssistantCacheTTL,
		}, classifier)
		caches.Register(llm.Cache())
		classifier = llm
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"backend", config.Type.String(),
		log.FieldCatchUpMode, string(projector.Mode()),
		"amqp_enabled", amqpEnabled,
		"sheets_enabled", exporter != nil,
		"llm_enabled", config.OpenAIAPIKey != "")

	return &BackendResult{
		Store:     store,
		Ledger:    ledger,
		Exporter:  exporter,
		Assistant: assistant.New(ledger, classifier),
		Caches:    caches,
		Cleanup:   func() error { return runCleanups(cleanups) },
	}, nil
}

// OpenStore connects the configured ledger store, applying migrations where the backend has them.
func (f *DefaultFactory) OpenStore(ctx context.Context, config Config) (storage.Ledger, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := postgres.Connect(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Postgres store")
		return repo, nil
	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized in-memory store; data is lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// NewExporter returns the Google Sheets exporter, or nil when no spreadsheet is configured.
func (f *DefaultFactory) NewExporter(ctx context.Context, config Config) (sheets.Exporter, error) {
	if config.GoogleSpreadsheetID == "" {
		return nil, nil
	}
	exp, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets exporter: %w", err)
	}
	return exp, nil
}

// runCleanups releases resources in reverse order of acquisition.
func runCleanups(cleanups []CleanupFunc) error {
	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
