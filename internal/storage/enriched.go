package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetEnriched returns the enriched record for itemID, or nil when absent.
func (s *SQLiteStorage) GetEnriched(ctx context.Context, itemID string) (*EnrichedRecord, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT item_id, fingerprint, tier, payload, tokens_used, updated_at
		FROM enriched_content
		WHERE item_id = ?
	`, itemID)

	return scanEnriched(row)
}

// FindByFingerprint returns the highest-tier record with the given fingerprint
// and tier >= minTier, excluding excludeItemID. It returns nil when none match.
func (s *SQLiteStorage) FindByFingerprint(ctx context.Context, fingerprint string, minTier int, excludeItemID string) (*EnrichedRecord, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT item_id, fingerprint, tier, payload, tokens_used, updated_at
		FROM enriched_content
		WHERE fingerprint = ? AND tier >= ? AND item_id != ?
		ORDER BY tier DESC, updated_at DESC
		LIMIT 1
	`, fingerprint, minTier, excludeItemID)

	return scanEnriched(row)
}

// SaveEnriched inserts or replaces the record for rec.ItemID.
func (s *SQLiteStorage) SaveEnriched(ctx context.Context, rec EnrichedRecord) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enriched_content (item_id, fingerprint, tier, payload, tokens_used, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			tier = excluded.tier,
			payload = excluded.payload,
			tokens_used = excluded.tokens_used,
			updated_at = excluded.updated_at
	`, rec.ItemID, rec.Fingerprint, rec.Tier, rec.Payload, rec.TokensUsed, formatTime(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save enriched content: %w", err)
	}

	return nil
}

func scanEnriched(row *sql.Row) (*EnrichedRecord, error) {
	var (
		rec       EnrichedRecord
		updatedAt string
	)
	if err := row.Scan(&rec.ItemID, &rec.Fingerprint, &rec.Tier, &rec.Payload, &rec.TokensUsed, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan enriched content: %w", err)
	}
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}
