/*
Package batch enriches many items in one run.

Items are processed in chunks. Items within a chunk run concurrently, chunks
are separated by a cooperative delay, and the run stops starting new items
as soon as the governor refuses a paid call.
*/
package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/moisesjgomez/open-pet-platform/internal/enrich"
	"github.com/moisesjgomez/open-pet-platform/internal/logging"
	"github.com/moisesjgomez/open-pet-platform/internal/metrics"
	"github.com/moisesjgomez/open-pet-platform/internal/pet"
	"github.com/moisesjgomez/open-pet-platform/internal/source"
)

const (
	// MaxItems caps ItemLimit.
	MaxItems = 500

	DefaultThreshold = 0.5
	DefaultChunkSize = 10
	DefaultDelay     = 500 * time.Millisecond
	DefaultAIDelay   = 2000 * time.Millisecond
)

// Enricher is the slice of enrich.Orchestrator a batch needs.
type Enricher interface {
	IsFresh(ctx context.Context, item pet.Item, opts enrich.Options) bool
	Enrich(ctx context.Context, item pet.Item, opts enrich.Options) enrich.Result
}

// Params configures a run. Zero values select the defaults.
type Params struct {
	// SourceFilter restricts the run to one upstream source tag.
	SourceFilter string `json:"sourceFilter,omitempty"`

	// ItemLimit is the maximum number of items considered, capped at MaxItems.
	ItemLimit int `json:"itemLimit"`

	RunAI bool `json:"runAI"`

	// BudgetThreshold is the fraction of the daily budget the run may use.
	BudgetThreshold float64 `json:"budgetThreshold"`

	ChunkSize int `json:"chunkSize"`

	// Delay separates chunks. It defaults to 2s when RunAI is set.
	Delay time.Duration `json:"delay"`
}

func (p Params) withDefaults() Params {
	if p.ItemLimit <= 0 || p.ItemLimit > MaxItems {
		p.ItemLimit = MaxItems
	}
	if p.BudgetThreshold <= 0 {
		p.BudgetThreshold = DefaultThreshold
	}
	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultChunkSize
	}
	if p.Delay <= 0 {
		p.Delay = DefaultDelay
		if p.RunAI {
			p.Delay = DefaultAIDelay
		}
	}
	return p
}

// Stats summarises a run. AIGenerated counts items whose tier was raised by
// AI output during the run, whether paid for or served from the bio and image
// caches; content copied from a duplicate fingerprint is not counted.
type Stats struct {
	RunID        string        `json:"runId"`
	Total        int           `json:"total"`
	Enriched     int           `json:"enriched"`
	Skipped      int           `json:"skipped"`
	AIGenerated  int           `json:"aiGenerated"`
	Failed       int           `json:"failed"`
	TokensUsed   int           `json:"tokensUsed"`
	StoppedEarly bool          `json:"stoppedEarly"`
	Duration     time.Duration `json:"duration"`
}

// Job runs batch enrichment over a source.
type Job struct {
	source   source.Source
	enricher Enricher
	log      zerolog.Logger
}

// NewJob creates a job.
func NewJob(src source.Source, enricher Enricher) *Job {
	return &Job{
		source:   src,
		enricher: enricher,
		log:      logging.Component("batch"),
	}
}

// Run enriches items until the list is exhausted, the budget is refused or
// ctx is cancelled. Only a failure to list items is returned as an error;
// cancellation ends the run early with the partial stats.
func (j *Job) Run(ctx context.Context, params Params) (Stats, error) {
	params = params.withDefaults()
	start := time.Now()
	stats := Stats{RunID: uuid.NewString()}
	log := j.log.With().Str("run_id", stats.RunID).Logger()

	items, err := j.source.GetAllItems(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list items: %w", err)
	}
	if params.SourceFilter != "" {
		items = source.Filter(items, params.SourceFilter)
	}
	if len(items) > params.ItemLimit {
		items = items[:params.ItemLimit]
	}
	stats.Total = len(items)

	log.Info().
		Int("items", stats.Total).
		Bool("run_ai", params.RunAI).
		Float64("budget_threshold", params.BudgetThreshold).
		Int("chunk_size", params.ChunkSize).
		Msg("batch started")

	opts := enrich.Options{RunAI: params.RunAI, BudgetThreshold: params.BudgetThreshold}

	var (
		mu   sync.Mutex
		stop atomic.Bool
	)

	for offset := 0; offset < len(items) && !stop.Load(); offset += params.ChunkSize {
		if offset > 0 {
			if !sleep(ctx, params.Delay) {
				log.Info().Msg("batch cancelled")
				break
			}
		}

		end := min(offset+params.ChunkSize, len(items))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(params.ChunkSize)

		for _, item := range items[offset:end] {
			item := item
			g.Go(func() error {
				if stop.Load() || gctx.Err() != nil {
					return nil
				}
				outcome := j.process(gctx, item, opts)

				mu.Lock()
				defer mu.Unlock()
				stats.add(outcome)
				if outcome.denied && !stats.StoppedEarly {
					stats.StoppedEarly = true
					stop.Store(true)
					log.Info().Str("item_id", item.ID).Msg("budget exhausted, stopping batch")
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	stats.Duration = time.Since(start)
	log.Info().
		Int("enriched", stats.Enriched).
		Int("skipped", stats.Skipped).
		Int("ai_generated", stats.AIGenerated).
		Int("failed", stats.Failed).
		Int("tokens", stats.TokensUsed).
		Bool("stopped_early", stats.StoppedEarly).
		Dur("duration", stats.Duration).
		Msg("batch finished")

	return stats, nil
}

type outcome struct {
	kind   string
	tokens int
	ai     bool
	denied bool
}

const (
	outcomeEnriched = "enriched"
	outcomeSkipped  = "skipped"
	outcomeFailed   = "failed"
)

func (s *Stats) add(o outcome) {
	switch o.kind {
	case outcomeEnriched:
		s.Enriched++
	case outcomeSkipped:
		s.Skipped++
	case outcomeFailed:
		s.Failed++
	}
	if o.ai {
		s.AIGenerated++
	}
	s.TokensUsed += o.tokens
}

// process enriches one item. A panic is contained and reported as a failure.
func (j *Job) process(ctx context.Context, item pet.Item, opts enrich.Options) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			j.log.Error().Str("item_id", item.ID).Interface("panic", r).Msg("item enrichment failed")
			out = outcome{kind: outcomeFailed}
		}
		metrics.BatchItems.WithLabelValues(out.kind).Inc()
	}()

	if j.enricher.IsFresh(ctx, item, opts) {
		return outcome{kind: outcomeSkipped}
	}

	res := j.enricher.Enrich(ctx, item, opts)
	return outcome{
		kind:   outcomeEnriched,
		tokens: res.TokensUsed,
		ai:     res.Generated,
		denied: res.BudgetDenied,
	}
}

// sleep waits for d or until ctx is done. It reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
