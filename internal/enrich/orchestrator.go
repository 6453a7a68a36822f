package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/moisesjgomez/open-pet-platform/internal/cache"
	"github.com/moisesjgomez/open-pet-platform/internal/governor"
	"github.com/moisesjgomez/open-pet-platform/internal/heuristics"
	"github.com/moisesjgomez/open-pet-platform/internal/inference"
	"github.com/moisesjgomez/open-pet-platform/internal/logging"
	"github.com/moisesjgomez/open-pet-platform/internal/metrics"
	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// Options controls a single Enrich call.
type Options struct {
	RunAI            bool
	RunImageAnalysis bool
	ForceRefresh     bool

	// BudgetThreshold is the fraction of the daily budget this call may use.
	// Zero means 1.0.
	BudgetThreshold float64
}

// RequestedTier returns the tier the options ask for. Image analysis implies
// text generation.
func (o Options) RequestedTier() Tier {
	switch {
	case o.RunImageAnalysis:
		return TierFull
	case o.RunAI:
		return TierBasic
	default:
		return TierHeuristic
	}
}

// Result is the outcome of Enrich.
type Result struct {
	Content Content

	// TokensUsed counts tokens spent by this call only.
	TokensUsed int

	// Cached is true when stored content satisfied the request without any
	// new work.
	Cached bool

	// Deduplicated is true when content was copied from another item.
	Deduplicated bool

	// BudgetDenied is true when the governor refused a paid call.
	BudgetDenied bool

	// Generated is true when this call raised the tier with AI output, either
	// from a paid call or from the fingerprint-keyed bio and image caches.
	Generated bool
}

// Config configures an Orchestrator.
type Config struct {
	// SerializePerItem makes concurrent calls for the same item run one at a
	// time, so the second sees the first one's result.
	SerializePerItem bool

	// CallTimeout bounds each external call.
	CallTimeout time.Duration

	// Temperature and MaxTokens are passed to text generation.
	Temperature float32
	MaxTokens   int

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Orchestrator composes heuristics, caches, the governor and the inference
// client into tiered enrichment.
type Orchestrator struct {
	repo   *Repository
	cache  *cache.Store
	gov    *governor.Governor
	client inference.Client
	locks  *keyedLock
	cfg    Config
	log    zerolog.Logger
}

// NewOrchestrator wires an orchestrator. client may be inference.Unavailable.
func NewOrchestrator(repo *Repository, store *cache.Store, gov *governor.Governor, client inference.Client, cfg Config) *Orchestrator {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 400
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if client == nil {
		client = inference.Unavailable{}
	}

	o := &Orchestrator{
		repo:   repo,
		cache:  store,
		gov:    gov,
		client: client,
		cfg:    cfg,
		log:    logging.Component("enrich"),
	}
	if cfg.SerializePerItem {
		o.locks = newKeyedLock()
	}
	return o
}

// Repository returns the content repository.
func (o *Orchestrator) Repository() *Repository {
	return o.repo
}

// IsFresh reports whether stored content for item already satisfies opts.
func (o *Orchestrator) IsFresh(ctx context.Context, item pet.Item, opts Options) bool {
	if opts.ForceRefresh {
		return false
	}
	c, ok := o.repo.Get(ctx, item.ID)
	return ok && c.Fingerprint == pet.Fingerprint(item) && c.Tier >= opts.RequestedTier()
}

// Enrich produces content for item at the requested tier or the best tier
// the budget and the inference service allow. It never fails: every
// external problem degrades the result.
func (o *Orchestrator) Enrich(ctx context.Context, item pet.Item, opts Options) Result {
	if opts.RunImageAnalysis {
		opts.RunAI = true
	}
	requested := opts.RequestedTier()

	if o.locks != nil {
		unlock := o.locks.Lock(item.ID)
		defer unlock()
	}

	fp := pet.Fingerprint(item)

	var prior, floor *Content
	if opts.ForceRefresh {
		// A refresh may fail or be denied; the stored content is then kept.
		if c, ok := o.repo.Get(ctx, item.ID); ok && c.Fingerprint == fp {
			floor = &c
		}
	} else {
		if c, ok := o.repo.Get(ctx, item.ID); ok && c.Fingerprint == fp {
			prior = &c
			if c.Tier >= requested {
				return o.done(Result{Content: c, Cached: true}, "cache")
			}
		}

		if c, ok := o.repo.FindByFingerprint(ctx, fp, TierBasic, item.ID); ok && (prior == nil || c.Tier > prior.Tier) {
			c.ItemID = item.ID
			c.TokensUsed = 0
			c.UpdatedAt = o.cfg.Now()
			o.repo.Save(ctx, c)
			prior = &c

			o.log.Debug().Str("item_id", item.ID).Str("tier", c.Tier.String()).Msg("reused content from duplicate fingerprint")
			if c.Tier >= requested {
				return o.done(Result{Content: c, Cached: true, Deduplicated: true}, "dedup")
			}
		}
	}

	h := heuristics.Analyze(item)
	content := Content{
		ItemID:      item.ID,
		Tags:        h.Tags,
		EnergyLevel: h.EnergyLevel,
		SizeClass:   h.SizeClass,
		AgeCategory: h.AgeCategory,
		Tier:        TierHeuristic,
		Fingerprint: fp,
	}
	if prior != nil {
		content.Bio = prior.Bio
		content.Summary = prior.Summary
		content.AITags = prior.AITags
		content.ImageAnalysis = prior.ImageAnalysis
		content.Tier = prior.Tier
		content.TokensUsed = prior.TokensUsed
	}

	res := Result{}

	if opts.RunAI && content.Tier < TierBasic {
		o.generateText(ctx, item, h, opts, &content, &res)
	}

	if opts.RunImageAnalysis && content.Tier == TierBasic {
		o.analyzeImages(ctx, item, opts, &content, &res)
	}

	if floor != nil && content.Tier < floor.Tier {
		o.log.Info().Str("item_id", item.ID).Str("tier", content.Tier.String()).Str("stored_tier", floor.Tier.String()).Msg("refresh fell short, keeping stored content")
		content.Bio = floor.Bio
		content.Summary = floor.Summary
		content.AITags = floor.AITags
		content.ImageAnalysis = floor.ImageAnalysis
		content.Tier = floor.Tier
		content.TokensUsed = floor.TokensUsed
		res.Generated = false
	}

	if content.Bio == "" {
		content.Bio = FallbackBio(item, h)
	}

	content.TokensUsed += res.TokensUsed
	content.UpdatedAt = o.cfg.Now()
	o.repo.Save(ctx, content)

	res.Content = content
	return o.done(res, "generated")
}

func (o *Orchestrator) done(res Result, source string) Result {
	metrics.EnrichResults.WithLabelValues(res.Content.Tier.String(), source).Inc()
	return res
}

// generateText raises content to TierBasic from the bio cache or a paid call.
func (o *Orchestrator) generateText(ctx context.Context, item pet.Item, h heuristics.Result, opts Options, content *Content, res *Result) {
	key := cache.Key(cache.CategoryBio, content.Fingerprint)

	var payload textPayload
	if o.cache != nil && o.cache.GetJSON(ctx, key, &payload) && payload.valid() {
		applyText(content, payload)
		res.Generated = true
		return
	}

	if !o.allow(ctx, opts, item.ID, TierBasic, res) {
		return
	}

	out, err := o.safeGenerate(ctx, inference.TextRequest{
		Prompt:       bioPrompt(item, h),
		SystemPrompt: bioSystemPrompt,
		Temperature:  o.cfg.Temperature,
		MaxTokens:    o.cfg.MaxTokens,
	})
	if err != nil {
		o.log.Warn().Err(err).Str("item_id", item.ID).Str("tier", TierBasic.String()).Msg("text generation failed")
		return
	}

	// Tokens were billed even if the output turns out to be unusable.
	res.TokensUsed += out.TokensUsed
	if o.gov != nil {
		o.gov.Record(ctx, modelOr(out.Model, "text"), out.TokensUsed)
	}

	payload, err = parseTextPayload(out.Text)
	if err != nil {
		o.log.Warn().Err(err).Str("item_id", item.ID).Str("tier", TierBasic.String()).Msg("discarding text generation output")
		return
	}

	applyText(content, payload)
	res.Generated = true
	if o.cache != nil {
		if err := o.cache.PutJSON(ctx, cache.CategoryBio, key, payload, out.TokensUsed); err != nil {
			o.log.Warn().Err(err).Str("item_id", item.ID).Msg("failed to cache bio")
		}
	}
}

func applyText(content *Content, p textPayload) {
	content.Bio = p.Bio
	content.Summary = p.Summary
	content.AITags = p.Tags
	content.Tier = TierBasic
}

// analyzeImages raises content from TierBasic to TierFull.
func (o *Orchestrator) analyzeImages(ctx context.Context, item pet.Item, opts Options, content *Content, res *Result) {
	if len(item.Images) == 0 {
		o.log.Debug().Str("item_id", item.ID).Msg("no images to analyze")
		return
	}

	key := cache.Key(cache.CategoryImage, content.Fingerprint)

	var cached ImageResult
	if o.cache != nil && o.cache.GetJSON(ctx, key, &cached) {
		content.ImageAnalysis = &cached
		content.Tier = TierFull
		res.Generated = true
		return
	}

	if !o.allow(ctx, opts, item.ID, TierFull, res) {
		return
	}

	urls := item.Images
	if len(urls) > inference.MaxImages {
		urls = urls[:inference.MaxImages]
	}

	out, err := o.safeAnalyze(ctx, urls)
	if err != nil {
		o.log.Warn().Err(err).Str("item_id", item.ID).Str("tier", TierFull.String()).Msg("image analysis failed")
		return
	}

	res.TokensUsed += out.TokensUsed
	if o.gov != nil {
		o.gov.Record(ctx, modelOr(out.Model, "vision"), out.TokensUsed)
	}

	analysis := ImageResult{
		BreedGuess:     out.BreedGuess,
		Color:          out.Color,
		ObservedTraits: out.ObservedTraits,
		Description:    out.Description,
	}
	content.ImageAnalysis = &analysis
	content.Tier = TierFull
	res.Generated = true

	if o.cache != nil {
		if err := o.cache.PutJSON(ctx, cache.CategoryImage, key, analysis, out.TokensUsed); err != nil {
			o.log.Warn().Err(err).Str("item_id", item.ID).Msg("failed to cache image analysis")
		}
	}
}

// allow consults the governor. A nil governor allows everything.
func (o *Orchestrator) allow(ctx context.Context, opts Options, itemID string, tier Tier, res *Result) bool {
	if o.gov == nil {
		return true
	}
	d := o.gov.Allow(ctx, opts.BudgetThreshold)
	if !d.Allowed {
		res.BudgetDenied = true
		o.log.Info().Str("item_id", itemID).Str("tier", tier.String()).Str("reason", string(d.Reason)).Msg("paid enrichment skipped")
	}
	return d.Allowed
}

func (o *Orchestrator) safeGenerate(ctx context.Context, req inference.TextRequest) (out inference.TextResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", inference.ErrUnavailable, r)
		}
	}()
	return o.client.GenerateText(ctx, req)
}

func (o *Orchestrator) safeAnalyze(ctx context.Context, urls []string) (out inference.ImageAnalysis, err error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", inference.ErrUnavailable, r)
		}
	}()
	return o.client.AnalyzeImages(ctx, urls)
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
