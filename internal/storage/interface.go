/*
Package storage implements the durable store used by the enrichment core.

It keeps cache entries, enriched content, item embeddings and daily usage
records in a single SQLite database (modernc.org/sqlite, CGo-free), by default
at ~/.open-pet-platform/petcore.db.

The store degrades gracefully: if the database cannot be opened, IsAvailable
reports false and callers fall back to in-memory or no-op behavior. Every
operation on a disabled store returns ErrUnavailable instead of panicking.
*/
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/moisesjgomez/open-pet-platform/internal/logging"

	_ "modernc.org/sqlite"
)

// ErrUnavailable is returned by every operation when the database is disabled.
var ErrUnavailable = errors.New("storage unavailable")

// Storage defines the durable operations the core relies on.
type Storage interface {
	// Init opens the database and runs migrations.
	Init() error

	// IsAvailable reports whether durable reads and writes can be attempted.
	IsAvailable() bool

	GetEntry(ctx context.Context, key string) (*CacheEntry, error)
	PutEntry(ctx context.Context, entry CacheEntry) error
	DeleteEntry(ctx context.Context, key string) error

	GetEnriched(ctx context.Context, itemID string) (*EnrichedRecord, error)
	FindByFingerprint(ctx context.Context, fingerprint string, minTier int, excludeItemID string) (*EnrichedRecord, error)
	SaveEnriched(ctx context.Context, rec EnrichedRecord) error

	GetEmbedding(ctx context.Context, itemID string) (*Embedding, error)
	SaveEmbedding(ctx context.Context, emb Embedding) error

	IncrementUsage(ctx context.Context, date, model string, tokens int, cost float64) error
	DailySpend(ctx context.Context, date string) (float64, error)
	UsageForDate(ctx context.Context, date string) ([]UsageRecord, error)

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	mu       sync.Mutex
	initOnce sync.Once
}

// DefaultPath returns ~/.open-pet-platform/petcore.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".open-pet-platform", "petcore.db"), nil
}

// NewStorage creates a storage instance for dbPath. An empty path selects
// DefaultPath. If no path can be determined the store starts disabled.
func NewStorage(dbPath string) *SQLiteStorage {
	if dbPath == "" {
		p, err := DefaultPath()
		if err != nil {
			logging.Warn().Err(err).Msg("storage disabled")
			return &SQLiteStorage{enabled: false}
		}
		dbPath = p
	}

	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: true,
	}
}

// Disabled returns a store that reports unavailable for every operation.
func Disabled() *SQLiteStorage {
	return &SQLiteStorage{enabled: false}
}

// Init initializes the database and runs migrations.
//
// If initialization fails, the store is disabled and subsequent operations
// return ErrUnavailable (graceful degradation).
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}

	var initErr error
	s.initOnce.Do(func() {
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.enabled = false
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.enabled = false
			logging.Warn().Err(initErr).Msg("storage disabled")
			return
		}
		db.SetMaxOpenConns(1)
		s.db = db

		if err := db.Ping(); err != nil {
			initErr = fmt.Errorf("failed to ping database: %w", err)
			s.enabled = false
			logging.Warn().Err(initErr).Msg("storage disabled")
			return
		}

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.enabled = false
			logging.Warn().Err(initErr).Msg("storage disabled")
			return
		}
	})

	return initErr
}

// IsAvailable reports whether the database is open and usable.
func (s *SQLiteStorage) IsAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled && s.db != nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// lock acquires the store mutex and returns ErrUnavailable when disabled.
// On success the caller must release s.mu.
func (s *SQLiteStorage) lock() error {
	s.mu.Lock()
	if !s.enabled || s.db == nil {
		s.mu.Unlock()
		return ErrUnavailable
	}
	return nil
}
