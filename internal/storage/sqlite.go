/*
Package storage provides SQLite database migrations and helper functions.

This file contains schema definitions, migration logic, and vector serialization
utilities for the storage layer.
*/
package storage

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/moisesjgomez/open-pet-platform/internal/logging"
)

// timeLayout is the text format used for every timestamp column.
const timeLayout = time.RFC3339Nano

// runMigrations executes database schema migrations.
func (s *SQLiteStorage) runMigrations() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	// Run migrations in order
	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
		{version: 2, name: "usage_records", up: s.migration002UsageRecords},
	}

	for _, m := range migrations {
		if version < m.version {
			logging.Info().Int("version", m.version).Str("name", m.name).Msg("running migration")
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m.version, m.name); err != nil {
				return err
			}
		}
	}

	return nil
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStorage) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}

	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *SQLiteStorage) setMigrationVersion(version int, name string) error {
	_, err := s.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// migration001InitialSchema creates the cache, enriched content and embedding tables.
func (s *SQLiteStorage) migration001InitialSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			tokens_used INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			expires_at INTEGER
		)
	`); err != nil {
		return fmt.Errorf("failed to create cache_entries table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_cache_entries_expires
		ON cache_entries(expires_at)
	`); err != nil {
		return fmt.Errorf("failed to create cache_entries expiry index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS enriched_content (
			item_id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			tier INTEGER NOT NULL,
			payload BLOB NOT NULL,
			tokens_used INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create enriched_content table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_enriched_content_fingerprint
		ON enriched_content(fingerprint, tier DESC)
	`); err != nil {
		return fmt.Errorf("failed to create enriched_content fingerprint index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS item_embeddings (
			item_id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			vector TEXT NOT NULL,
			source_tag TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create item_embeddings table: %w", err)
	}

	return nil
}

// migration002UsageRecords creates the per-day, per-model usage aggregate.
func (s *SQLiteStorage) migration002UsageRecords() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS usage_records (
			date TEXT NOT NULL,
			model TEXT NOT NULL,
			request_count INTEGER NOT NULL DEFAULT 0,
			tokens_used INTEGER NOT NULL DEFAULT 0,
			estimated_cost REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (date, model)
		)
	`); err != nil {
		return fmt.Errorf("failed to create usage_records table: %w", err)
	}

	return nil
}

// vectorToJSON converts a float32 vector to JSON for storage.
func vectorToJSON(vector []float32) string {
	data, err := json.Marshal(vector)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to marshal vector")
		return "[]"
	}
	return string(data)
}

// jsonToVector parses JSON storage back to a float32 vector.
func jsonToVector(jsonStr string) ([]float32, error) {
	var vector []float32
	if err := json.Unmarshal([]byte(jsonStr), &vector); err != nil {
		return nil, err
	}
	return vector, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
