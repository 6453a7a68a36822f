/*
Package storage provides data models for the durable store.

Payloads are opaque bytes: the storage layer does not know the shape of
enriched content, only the columns it needs to index (fingerprint, tier).
*/
package storage

import "time"

// CacheEntry is a keyed payload with an optional expiry.
type CacheEntry struct {
	// Key is the cache key, namespaced by category ("bio:<fingerprint>").
	Key string `json:"key"`

	// Payload is the serialized value.
	Payload []byte `json:"payload"`

	// TokensUsed is the inference cost that produced the payload.
	TokensUsed int `json:"tokens_used"`

	// CreatedAt is when the entry was written.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is nil for entries that never expire.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the entry has a non-nil expiry at or before now.
func (e CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// EnrichedRecord is the persisted form of enriched content for one item.
type EnrichedRecord struct {
	// ItemID is the primary key.
	ItemID string `json:"item_id"`

	// Fingerprint is the content fingerprint the payload was computed against.
	Fingerprint string `json:"fingerprint"`

	// Tier is the numeric enrichment tier (0 heuristic, 1 basic, 2 full).
	Tier int `json:"tier"`

	// Payload is the serialized enriched content.
	Payload []byte `json:"payload"`

	// TokensUsed is the cost attributed to this item.
	TokensUsed int `json:"tokens_used"`

	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Embedding is a cached embedding vector for an item.
type Embedding struct {
	// ItemID is the primary key.
	ItemID string `json:"item_id"`

	// Vector is the embedding (serialized as JSON).
	Vector []float32 `json:"vector"`

	// Fingerprint is the content fingerprint the vector was computed from.
	Fingerprint string `json:"fingerprint"`

	// SourceTag names the model that produced the vector.
	SourceTag string `json:"source_tag"`

	// CreatedAt is when the embedding was generated.
	CreatedAt time.Time `json:"created_at"`
}

// UsageRecord aggregates inference usage per calendar day and model.
type UsageRecord struct {
	Date          string  `json:"date"`
	Model         string  `json:"model"`
	RequestCount  int     `json:"request_count"`
	TokensUsed    int     `json:"tokens_used"`
	EstimatedCost float64 `json:"estimated_cost"`
}
