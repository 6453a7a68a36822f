package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetEmbedding returns the stored embedding for itemID, or nil when absent.
//
// The caller must compare Fingerprint against the item's current fingerprint
// before trusting the vector.
func (s *SQLiteStorage) GetEmbedding(ctx context.Context, itemID string) (*Embedding, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT item_id, fingerprint, vector, source_tag, created_at
		FROM item_embeddings
		WHERE item_id = ?
	`, itemID)

	var (
		emb        Embedding
		vectorJSON string
		createdAt  string
	)
	if err := row.Scan(&emb.ItemID, &emb.Fingerprint, &vectorJSON, &emb.SourceTag, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}

	vector, err := jsonToVector(vectorJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedding vector: %w", err)
	}
	emb.Vector = vector
	emb.CreatedAt = parseTime(createdAt)

	return &emb, nil
}

// SaveEmbedding inserts or replaces the embedding for emb.ItemID.
func (s *SQLiteStorage) SaveEmbedding(ctx context.Context, emb Embedding) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if emb.CreatedAt.IsZero() {
		emb.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO item_embeddings (item_id, fingerprint, vector, source_tag, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, emb.ItemID, emb.Fingerprint, vectorToJSON(emb.Vector), emb.SourceTag, formatTime(emb.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}

	return nil
}
