package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/moisesjgomez/open-pet-platform/internal/cache"
	"github.com/moisesjgomez/open-pet-platform/internal/governor"
	"github.com/moisesjgomez/open-pet-platform/internal/inference"
	"github.com/moisesjgomez/open-pet-platform/internal/logging"
	"github.com/moisesjgomez/open-pet-platform/internal/pet"
	"github.com/moisesjgomez/open-pet-platform/internal/storage"
)

// EmbeddingStore persists item vectors. storage.SQLiteStorage implements it.
type EmbeddingStore interface {
	IsAvailable() bool
	GetEmbedding(ctx context.Context, itemID string) (*storage.Embedding, error)
	SaveEmbedding(ctx context.Context, emb storage.Embedding) error
}

// IndexConfig configures an Index.
type IndexConfig struct {
	// CallTimeout bounds a single Embed call. Zero selects 15s.
	CallTimeout time.Duration

	// BudgetThreshold is passed to the governor before each paid call.
	// Zero selects governor.InteractiveThreshold.
	BudgetThreshold float64

	// SourceTag is recorded with persisted vectors.
	SourceTag string
}

type memoVector struct {
	fingerprint string
	vector      []float32
}

// Index resolves and caches embedding vectors and ranks items by similarity.
//
// Every dependency is optional. Without a client no vector can be produced and
// ranking degrades to heuristic scoring.
type Index struct {
	client inference.Client
	gov    *governor.Governor
	store  EmbeddingStore
	cache  *cache.Store
	cfg    IndexConfig
	log    zerolog.Logger

	mu     sync.RWMutex
	memory map[string]memoVector
}

// NewIndex creates an embedding index.
func NewIndex(client inference.Client, gov *governor.Governor, store EmbeddingStore, cacheStore *cache.Store, cfg IndexConfig) *Index {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.BudgetThreshold <= 0 {
		cfg.BudgetThreshold = governor.InteractiveThreshold
	}
	if cfg.SourceTag == "" {
		cfg.SourceTag = "embedding"
	}
	if client == nil {
		client = inference.Unavailable{}
	}
	return &Index{
		client: client,
		gov:    gov,
		store:  store,
		cache:  cacheStore,
		cfg:    cfg,
		log:    logging.Component("search"),
		memory: make(map[string]memoVector),
	}
}

// ItemVector returns the embedding for item, or nil when none can be obtained.
//
// Lookup order: in-process memory, durable store, cache, then a governed
// Embed call. A freshly computed vector is written back to all three.
func (x *Index) ItemVector(ctx context.Context, item pet.Item) []float32 {
	fp := pet.Fingerprint(item)

	x.mu.RLock()
	m, ok := x.memory[item.ID]
	x.mu.RUnlock()
	if ok && m.fingerprint == fp {
		return m.vector
	}

	if x.store != nil && x.store.IsAvailable() {
		emb, err := x.store.GetEmbedding(ctx, item.ID)
		if err != nil {
			x.log.Debug().Err(err).Str("item_id", item.ID).Msg("embedding lookup failed")
		} else if emb != nil && emb.Fingerprint == fp && len(emb.Vector) > 0 {
			x.remember(item.ID, fp, emb.Vector)
			return emb.Vector
		}
	}

	key := cache.Key(cache.CategoryEmbedding, fp)
	var cached []float32
	if x.cache != nil && x.cache.GetJSON(ctx, key, &cached) && len(cached) > 0 {
		x.remember(item.ID, fp, cached)
		x.persist(ctx, item.ID, fp, cached)
		return cached
	}

	vec, tokens := x.embed(ctx, itemText(item))
	if vec == nil {
		return nil
	}

	x.remember(item.ID, fp, vec)
	x.persist(ctx, item.ID, fp, vec)
	if x.cache != nil {
		if err := x.cache.PutJSON(ctx, cache.CategoryEmbedding, key, vec, tokens); err != nil {
			x.log.Warn().Err(err).Str("item_id", item.ID).Msg("failed to cache embedding")
		}
	}
	return vec
}

// QueryVector embeds free text, caching the result by content hash.
func (x *Index) QueryVector(ctx context.Context, text string) []float32 {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sum := sha256.Sum256([]byte(strings.ToLower(text)))
	key := cache.Key(cache.CategoryEmbedding, "query:"+hex.EncodeToString(sum[:]))

	var cached []float32
	if x.cache != nil && x.cache.GetJSON(ctx, key, &cached) && len(cached) > 0 {
		return cached
	}

	vec, tokens := x.embed(ctx, text)
	if vec != nil && x.cache != nil {
		if err := x.cache.PutJSON(ctx, cache.CategoryEmbedding, key, vec, tokens); err != nil {
			x.log.Warn().Err(err).Msg("failed to cache query embedding")
		}
	}
	return vec
}

// embed performs one governed Embed call. Failures yield nil.
func (x *Index) embed(ctx context.Context, text string) ([]float32, int) {
	if x.gov != nil {
		if d := x.gov.Allow(ctx, x.cfg.BudgetThreshold); !d.Allowed {
			x.log.Debug().Str("reason", string(d.Reason)).Msg("embedding skipped")
			return nil, 0
		}
	}

	out, err := x.safeEmbed(ctx, text)
	if out.TokensUsed > 0 && x.gov != nil {
		x.gov.Record(ctx, modelOr(out.Model, "embedding"), out.TokensUsed)
	}
	if err != nil {
		x.log.Debug().Err(err).Msg("embedding unavailable")
		return nil, 0
	}
	if len(out.Vector) == 0 {
		return nil, 0
	}
	return out.Vector, out.TokensUsed
}

func (x *Index) safeEmbed(ctx context.Context, text string) (out inference.EmbedResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, x.cfg.CallTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", inference.ErrUnavailable, r)
		}
	}()
	return x.client.Embed(ctx, text)
}

func (x *Index) remember(itemID, fp string, vec []float32) {
	x.mu.Lock()
	x.memory[itemID] = memoVector{fingerprint: fp, vector: vec}
	x.mu.Unlock()
}

func (x *Index) persist(ctx context.Context, itemID, fp string, vec []float32) {
	if x.store == nil || !x.store.IsAvailable() {
		return
	}
	err := x.store.SaveEmbedding(ctx, storage.Embedding{
		ItemID:      itemID,
		Vector:      vec,
		Fingerprint: fp,
		SourceTag:   x.cfg.SourceTag,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		x.log.Warn().Err(err).Str("item_id", itemID).Msg("failed to persist embedding")
	}
}

// itemText renders the fingerprinted fields of an item for embedding.
func itemText(item pet.Item) string {
	parts := make([]string, 0, 6)
	for _, s := range []string{string(item.Species), item.Breed, item.Age, string(item.Size), item.Color} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if d := strings.TrimSpace(item.Description); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, ". ")
}

// cosineSimilarity computes cosine similarity between two vectors.
// It returns 0 for mismatched lengths or zero-norm input.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	sim := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim))
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
