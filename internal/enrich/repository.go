package enrich

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/moisesjgomez/open-pet-platform/internal/logging"
	"github.com/moisesjgomez/open-pet-platform/internal/storage"
)

// Durable is the persistent enriched-content store. storage.SQLiteStorage
// implements it.
type Durable interface {
	IsAvailable() bool
	GetEnriched(ctx context.Context, itemID string) (*storage.EnrichedRecord, error)
	FindByFingerprint(ctx context.Context, fingerprint string, minTier int, excludeItemID string) (*storage.EnrichedRecord, error)
	SaveEnriched(ctx context.Context, rec storage.EnrichedRecord) error
}

// Repository keeps enriched content in memory and mirrors writes to a
// durable store in the background.
//
// Reads consult memory first, then the durable store when it is available.
// Writes land in memory synchronously; the durable write is best-effort.
type Repository struct {
	mu   sync.RWMutex
	byID map[string]Content

	durable Durable
	writer  *storage.Writer
	log     zerolog.Logger
}

// NewRepository creates a repository. durable and writer may be nil; without a
// writer, durable writes run inline and their errors are logged.
func NewRepository(durable Durable, writer *storage.Writer) *Repository {
	return &Repository{
		byID:    make(map[string]Content),
		durable: durable,
		writer:  writer,
		log:     logging.Component("enrich.repository"),
	}
}

func (r *Repository) durableUp() bool {
	return r.durable != nil && r.durable.IsAvailable()
}

// Get returns the content stored for itemID.
func (r *Repository) Get(ctx context.Context, itemID string) (Content, bool) {
	r.mu.RLock()
	c, ok := r.byID[itemID]
	r.mu.RUnlock()
	if ok {
		return c, true
	}

	if !r.durableUp() {
		return Content{}, false
	}

	rec, err := r.durable.GetEnriched(ctx, itemID)
	if err != nil {
		r.log.Warn().Err(err).Str("item_id", itemID).Msg("durable read failed")
		return Content{}, false
	}
	if rec == nil {
		return Content{}, false
	}

	c, err = decodeRecord(rec)
	if err != nil {
		r.log.Warn().Err(err).Str("item_id", itemID).Msg("discarding undecodable enriched content")
		return Content{}, false
	}

	r.remember(c)
	return c, true
}

// FindByFingerprint returns the highest-tier content of another item with the
// same fingerprint and at least minTier.
func (r *Repository) FindByFingerprint(ctx context.Context, fingerprint string, minTier Tier, excludeItemID string) (Content, bool) {
	var (
		best  Content
		found bool
	)

	r.mu.RLock()
	for id, c := range r.byID {
		if id == excludeItemID || c.Fingerprint != fingerprint || c.Tier < minTier {
			continue
		}
		if !found || c.Tier > best.Tier {
			best, found = c, true
		}
	}
	r.mu.RUnlock()

	if found && best.Tier == TierFull {
		return best, true
	}

	if !r.durableUp() {
		return best, found
	}

	rec, err := r.durable.FindByFingerprint(ctx, fingerprint, int(minTier), excludeItemID)
	if err != nil {
		r.log.Warn().Err(err).Str("fingerprint", fingerprint).Msg("durable fingerprint lookup failed")
		return best, found
	}
	if rec == nil {
		return best, found
	}

	c, err := decodeRecord(rec)
	if err != nil {
		return best, found
	}
	if !found || c.Tier > best.Tier {
		return c, true
	}
	return best, found
}

// Save stores c in memory and queues the durable write.
func (r *Repository) Save(ctx context.Context, c Content) {
	r.remember(c)

	if !r.durableUp() {
		return
	}

	payload, err := json.Marshal(c)
	if err != nil {
		r.log.Warn().Err(err).Str("item_id", c.ItemID).Msg("failed to encode enriched content")
		return
	}
	rec := storage.EnrichedRecord{
		ItemID:      c.ItemID,
		Fingerprint: c.Fingerprint,
		Tier:        int(c.Tier),
		Payload:     payload,
		TokensUsed:  c.TokensUsed,
		UpdatedAt:   c.UpdatedAt,
	}

	write := func(ctx context.Context) error {
		return r.durable.SaveEnriched(ctx, rec)
	}

	if r.writer != nil {
		r.writer.Submit("save_enriched", write)
		return
	}
	if err := write(ctx); err != nil {
		r.log.Warn().Err(err).Str("item_id", c.ItemID).Msg("failed to persist enriched content")
	}
}

func (r *Repository) remember(c Content) {
	r.mu.Lock()
	r.byID[c.ItemID] = c
	r.mu.Unlock()
}

// Len returns the number of items held in memory.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func decodeRecord(rec *storage.EnrichedRecord) (Content, error) {
	var c Content
	if err := json.Unmarshal(rec.Payload, &c); err != nil {
		return Content{}, err
	}
	c.ItemID = rec.ItemID
	c.Fingerprint = rec.Fingerprint
	c.Tier = Tier(rec.Tier)
	return c, nil
}
