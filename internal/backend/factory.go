package backend

import (
	"context"
	"fmt"

	"budgetrollup/internal/log"
	"budgetrollup/internal/sources"
	"budgetrollup/internal/sources/memory"
	"budgetrollup/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	if config.SeedFile != "" {
		fixture, err := sources.LoadFixture(config.SeedFile)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		n, err := repo.Seed(ctx, fixture)
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("seed SQLite from %s: %w", config.SeedFile, err)
		}
		f.logger.Info("Seeded SQLite backend", "seed_file", config.SeedFile, log.FieldRows, n, log.FieldOperation, log.OpSeed)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	if config.SeedFile == "" {
		f.logger.Warn("Memory backend has no SEED_FILE, every rollup will be empty")
		return &BackendResult{Store: memory.New()}, nil
	}

	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	return &BackendResult{Store: store}, nil
}
