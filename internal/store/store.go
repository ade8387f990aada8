// Package store provides Badger-backed persistence for operational records:
// the translation audit trail and the cached oracle responses. Learned
// mappings themselves live in JSON documents, not here.
package store

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Generic entities
	Records     *Entity[TranslationRecord]
	OracleCache *Entity[OracleCacheEntry]
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	store.Records = NewEntity[TranslationRecord](store, "rec:")
	store.OracleCache = NewEntity[OracleCacheEntry](store, "oc:").
		WithIndex("fingerprint", func(e *OracleCacheEntry) []string {
			return []string{e.Fingerprint}
		})

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping verifies the database accepts reads.
func (s *Store) Ping() error {
	return s.db.View(func(txn *badger.Txn) error { return nil })
}
