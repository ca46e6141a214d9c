// Package badger implements the Persistence Adapter (spec.md §4.7) on
// top of badgerhold, grounded on the teacher's
// internal/storage/badger/connection.go and job_storage.go.
package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/a11yscan/auditor/internal/common"
)

// DB manages the Badger database connection underlying every store.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Open opens (creating if necessary) the badger store at cfg.Path.
func Open(cfg common.StorageConfig, logger arbor.ILogger) (*DB, error) {
	if cfg.ResetOnStartup {
		if _, err := os.Stat(cfg.Path); err == nil {
			logger.Debug().Str("path", cfg.Path).Msg("deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(cfg.Path); err != nil {
				logger.Warn().Err(err).Str("path", cfg.Path).Msg("failed to delete database directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = cfg.Path
	options.ValueDir = cfg.Path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}

	return &DB{store: store, logger: logger}, nil
}

// Store exposes the underlying badgerhold store for the adapter.
func (d *DB) Store() *badgerhold.Store { return d.store }

// Close closes the underlying database.
func (d *DB) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}
