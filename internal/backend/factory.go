package backend

import (
	"context"
	"fmt"

	"bilancio/internal/ledger/memory"
	applog "bilancio/internal/log"
	"bilancio/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Nop()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLBackend(ctx, storage.SQLite, config.SQLiteDBPath, "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		return f.createSQLBackend(ctx, storage.Postgres, config.DatabaseURL, "", "")
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, d storage.Dialect, dsn string, logKey, logValue string) (*BackendResult, error) {
	store, err := storage.Open(ctx, d, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", d.Name, err)
	}

	args := []any{"dialect", d.Name}
	if logKey != "" {
		args = append(args, logKey, logValue)
	}
	f.logger.InfoContext(ctx, "Initialized SQL backend", args...)

	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Warn("Initialized memory backend; data is lost on restart")
	store := memory.New()
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}
