package backend

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"spendsmart/internal/kv"
	"spendsmart/internal/storage"
)

// Type represents the persistence backend type
type Type string

const (
	KVBackend     Type = "kv"
	SQLiteBackend Type = "sqlite"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case KVBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// KV specific
	DataDir string

	// SQLite specific
	SQLiteDBPath string
}

// CleanupFunc represents a cleanup function for backend resources
type CleanupFunc func() error

// Result contains the constructed repositories and optional cleanup function
type Result struct {
	Identities storage.IdentityStore
	Expenses   storage.ExpenseStore
	Cleanup    CleanupFunc
}

// Factory creates persistence backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(_ context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	default:
		return f.createKVBackend(config)
	}
}

func (f *DefaultFactory) createKVBackend(config Config) (*Result, error) {
	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := kv.Open(filepath.Join(dataDir, "spendsmart.json"))
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}
	repo := storage.NewKVRepository(store)

	f.logger.Info("Initialized kv backend", "data_directory", dataDir)

	return &Result{
		Identities: repo,
		Expenses:   repo,
		Cleanup:    nil, // nothing held open between writes
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{
		Identities: repo,
		Expenses:   repo,
		Cleanup:    repo.Close,
	}, nil
}
