package backend

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/adapters"
	"bilancio/internal/amqp"
	"bilancio/internal/services"
	gsheet "bilancio/internal/sheets/google"
	"bilancio/internal/sheets/memory"
	"bilancio/internal/storage"
)

// DefaultFactory builds the store named by Config.Type.
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory returns a Factory logging through logger, or slog.Default()
// when logger is nil.
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend validates config and constructs the matching store.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case SQLiteBackend:
		return f.sqlite(config)
	case SheetsBackend:
		return f.googleSheets(ctx, config)
	case MemoryBackend:
		return f.memory(config)
	}
	return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
}

func (f *DefaultFactory) sqlite(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// Without AMQP records never leave SQLite, which is fine for development.
	var publisher services.SyncPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			publisher = client
		}
	}

	svc := services.NewRecordService(repo, publisher)
	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Backend: adapters.NewSQLiteAdapter(repo, svc),
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) googleSheets(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) memory(config Config) (*BackendResult, error) {
	dir := config.DataDirectory
	if dir == "" {
		dir = "data"
	}
	f.logger.Info("Initialized memory backend", "data_directory", dir)
	return &BackendResult{Backend: memory.NewFromFiles(dir)}, nil
}
