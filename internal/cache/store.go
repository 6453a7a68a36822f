package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/moisesjgomez/open-pet-platform/internal/logging"
	"github.com/moisesjgomez/open-pet-platform/internal/metrics"
	"github.com/moisesjgomez/open-pet-platform/internal/storage"
)

// Backend is a durable entry store. storage.SQLiteStorage and RedisBackend
// implement it.
type Backend interface {
	IsAvailable() bool
	GetEntry(ctx context.Context, key string) (*storage.CacheEntry, error)
	PutEntry(ctx context.Context, entry storage.CacheEntry) error
	DeleteEntry(ctx context.Context, key string) error
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// Options configures a Store.
type Options struct {
	// Policy overrides the category TTLs. Nil selects DefaultPolicy.
	Policy Policy

	// LocalCapacity bounds the fallback map. Zero selects DefaultLocalCapacity.
	LocalCapacity int

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Store is a TTL cache over a durable Backend with a local fallback.
//
// Store never returns backend errors from Get or Put: a failing backend is
// logged and the local map is used instead.
type Store struct {
	backend Backend
	policy  Policy
	local   *localMap
	now     func() time.Time
	log     zerolog.Logger
}

// NewStore creates a store over backend. A nil backend runs on the local map only.
func NewStore(backend Backend, opts Options) *Store {
	if opts.Policy == nil {
		opts.Policy = DefaultPolicy()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		backend: backend,
		policy:  opts.Policy,
		local:   newLocalMap(opts.LocalCapacity),
		now:     opts.Now,
		log:     logging.Component("cache"),
	}
}

// Policy returns the TTL policy in use.
func (s *Store) Policy() Policy {
	return s.policy
}

// Get returns the payload for key. Expired entries are a miss and are
// removed as a side effect.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	entry, ok := s.lookup(ctx, key)
	if ok && entry.Expired(s.now()) {
		s.Invalidate(ctx, key)
		ok = false
	}

	result := "miss"
	if ok {
		result = "hit"
	}
	metrics.CacheRequests.WithLabelValues(categoryOf(key), result).Inc()

	if !ok {
		return nil, false
	}
	return entry.Payload, true
}

func (s *Store) lookup(ctx context.Context, key string) (storage.CacheEntry, bool) {
	if s.backendUp() {
		entry, err := s.backend.GetEntry(ctx, key)
		if err == nil && entry != nil {
			return *entry, true
		}
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("cache backend read failed, using local map")
		}
	}
	return s.local.get(key)
}

// Put stores payload under key with the TTL of category, overwriting any
// previous entry regardless of its TTL.
func (s *Store) Put(ctx context.Context, category Category, key string, payload []byte, tokens int) {
	s.PutTTL(ctx, key, payload, tokens, s.policy.TTL(category))
}

// PutTTL stores payload under key with an explicit TTL. Indefinite (0) never expires.
func (s *Store) PutTTL(ctx context.Context, key string, payload []byte, tokens int, ttl time.Duration) {
	now := s.now()
	entry := storage.CacheEntry{
		Key:        key,
		Payload:    payload,
		TokensUsed: tokens,
		CreatedAt:  now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		entry.ExpiresAt = &expires
	}

	if s.backendUp() {
		err := s.backend.PutEntry(ctx, entry)
		if err == nil {
			// Drop any stale copy written during an outage.
			s.local.delete(key)
			return
		}
		s.log.Warn().Err(err).Str("key", key).Msg("cache backend write failed, using local map")
	}

	metrics.CacheFallbackWrites.Inc()
	s.local.put(entry)
}

// Invalidate removes key from the backend and the local map.
func (s *Store) Invalidate(ctx context.Context, key string) {
	s.local.delete(key)
	if !s.backendUp() {
		return
	}
	if err := s.backend.DeleteEntry(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache backend delete failed")
	}
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	now := s.now()
	n := s.local.purge(now)

	if !s.backendUp() {
		return n, nil
	}

	purged, err := s.backend.PurgeExpired(ctx, now)
	if err != nil {
		return n, fmt.Errorf("failed to purge backend: %w", err)
	}
	return n + purged, nil
}

// LocalLen returns the number of entries held in the fallback map.
func (s *Store) LocalLen() int {
	return s.local.len()
}

func (s *Store) backendUp() bool {
	return s.backend != nil && s.backend.IsAvailable()
}

// GetJSON decodes the payload for key into v. A payload that fails to decode
// is invalidated and reported as a miss.
func (s *Store) GetJSON(ctx context.Context, key string, v any) bool {
	payload, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, v); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		s.Invalidate(ctx, key)
		return false
	}
	return true
}

// PutJSON encodes v and stores it under key with the TTL of category.
func (s *Store) PutJSON(ctx context.Context, category Category, key string, v any, tokens int) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	s.Put(ctx, category, key, payload, tokens)
	return nil
}
