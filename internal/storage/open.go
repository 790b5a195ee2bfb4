package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Storage backends selectable by configuration.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and configures a storage backend.
type Options struct {
	Backend string
	// Path is the JSON file or SQLite database file.
	Path string
	// DSN is the Postgres connection string. For SQLite it overrides Path.
	DSN    string
	Logger *zap.Logger
}

// Open returns the configured storage backend, ready for use.
func Open(ctx context.Context, opts Options) (Storage, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch opts.Backend {
	case BackendJSON, "":
		fs := NewFileStorage(opts.Path, logger)
		if err := fs.Load(); err != nil {
			return nil, fmt.Errorf("load %s: %w", opts.Path, err)
		}
		return fs, nil
	case BackendSQLite:
		dsn := opts.DSN
		if dsn == "" {
			dsn = opts.Path
		}
		return openSQL(ctx, DriverSQLite, dsn, logger)
	case BackendPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres backend requires a DSN")
		}
		return openSQL(ctx, DriverPostgres, opts.DSN, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

func openSQL(ctx context.Context, driver, dsn string, logger *zap.Logger) (Storage, error) {
	s, err := OpenSQL(ctx, driver, dsn, WithSQLLogger(logger))
	if err != nil {
		return nil, err
	}
	return s, nil
}
