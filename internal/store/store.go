// Package store provides SQLite-backed persistence for messages and files.
// Only the state component writes; all writes are serialized through Store's
// single connection so the WAL-mode database never sees concurrent writers.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store manages the SQLite database and the on-disk blob directory for
// uploaded file bytes.
type Store struct {
	db         *sql.DB
	uploadsDir string
	logger     zerolog.Logger
	mu         sync.RWMutex
}

// New opens (or creates) the SQLite database under dataDir/emulator.db,
// ensures dataDir/uploads exists, and runs migrations. Callers only invoke
// New when persistence is enabled (config.PersistenceEnabled).
func New(dataDir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	uploadsDir := filepath.Join(dataDir, "uploads")
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "emulator.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// A single SQLite connection avoids SQLITE_BUSY storms under WAL and
	// matches the single-writer invariant the state component relies on.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:         db,
		uploadsDir: uploadsDir,
		logger:     logger,
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("store initialized")
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database connection (for testing).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping reports whether the database connection is alive; used by the
// readiness health check.
func (s *Store) Ping() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Ping()
}
