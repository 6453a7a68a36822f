package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetEntry returns the cache entry for key, or nil when absent.
//
// Expiry is not checked here; callers decide whether an expired entry is a miss.
func (s *SQLiteStorage) GetEntry(ctx context.Context, key string) (*CacheEntry, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT key, payload, tokens_used, created_at, expires_at
		FROM cache_entries
		WHERE key = ?
	`, key)

	var (
		entry     CacheEntry
		createdAt int64
		expiresAt sql.NullInt64
	)
	if err := row.Scan(&entry.Key, &entry.Payload, &entry.TokensUsed, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	entry.CreatedAt = time.Unix(0, createdAt)
	if expiresAt.Valid {
		t := time.Unix(0, expiresAt.Int64)
		entry.ExpiresAt = &t
	}

	return &entry, nil
}

// PutEntry inserts or overwrites the entry for entry.Key.
func (s *SQLiteStorage) PutEntry(ctx context.Context, entry CacheEntry) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var expiresAt sql.NullInt64
	if entry.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: entry.ExpiresAt.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, payload, tokens_used, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			tokens_used = excluded.tokens_used,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, entry.Key, entry.Payload, entry.TokensUsed, entry.CreatedAt.UnixNano(), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}

	return nil
}

// DeleteEntry removes the entry for key. Deleting a missing key is not an error.
func (s *SQLiteStorage) DeleteEntry(ctx context.Context, key string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// PurgeExpired deletes every entry whose expiry is at or before now and
// returns the number removed.
func (s *SQLiteStorage) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cache_entries
		WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired entries: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged entries: %w", err)
	}
	return int(n), nil
}
