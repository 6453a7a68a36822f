/*
Package governor gates paid inference calls behind an hourly request cap and a
daily spend budget.

A single Governor is constructed at process start and injected into every
component that may call the inference client. The hourly counter is a lock-free
atomic with a window start; daily spend is read from the durable usage store.
When the usage store is unreachable the spend check is skipped and only the
local rate cap applies.
*/
package governor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/moisesjgomez/open-pet-platform/internal/logging"
	"github.com/moisesjgomez/open-pet-platform/internal/metrics"
	"github.com/moisesjgomez/open-pet-platform/internal/storage"
)

// Reason explains an Allow decision.
type Reason string

const (
	ReasonOK             Reason = "ok"
	ReasonRateLimited    Reason = "rate_limited"
	ReasonBudgetExceeded Reason = "budget_exceeded"
)

// Threshold fractions of the daily budget.
const (
	InteractiveThreshold = 1.0
	BatchThreshold       = 0.5
)

const window = time.Hour

// UsageStore is the durable usage aggregate. storage.SQLiteStorage implements it.
type UsageStore interface {
	IsAvailable() bool
	IncrementUsage(ctx context.Context, date, model string, tokens int, cost float64) error
	DailySpend(ctx context.Context, date string) (float64, error)
	UsageForDate(ctx context.Context, date string) ([]storage.UsageRecord, error)
}

// Pricing is the USD cost per 1000 tokens.
type Pricing struct {
	InputPer1K  float64 `koanf:"input_per_1k" yaml:"input_per_1k"`
	OutputPer1K float64 `koanf:"output_per_1k" yaml:"output_per_1k"`
}

// Average returns the mean of the input and output rates.
func (p Pricing) Average() float64 {
	return (p.InputPer1K + p.OutputPer1K) / 2
}

// Config holds the governor limits.
type Config struct {
	// HourlyRequestCap is the maximum number of permitted calls per hour window.
	HourlyRequestCap int

	// DailyBudget is the spend ceiling in USD per calendar day.
	DailyBudget float64

	// EstimatedCallCost is the expected cost of the next call, added to today's
	// spend before comparing against the budget.
	EstimatedCallCost float64

	// Pricing maps model identifiers to rates. Unknown models use DefaultPricing.
	Pricing        map[string]Pricing
	DefaultPricing Pricing

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Decision is the outcome of Allow.
type Decision struct {
	Allowed     bool
	Reason      Reason
	HourlyCount int
	TodaySpend  float64
	SpendLimit  float64
}

// Governor enforces the hourly request cap and the daily budget.
type Governor struct {
	cfg   Config
	store UsageStore
	log   zerolog.Logger

	count       atomic.Int64
	windowStart atomic.Int64
}

// New creates a governor. store may be nil.
func New(cfg Config, store UsageStore) *Governor {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	g := &Governor{
		cfg:   cfg,
		store: store,
		log:   logging.Component("governor"),
	}
	g.windowStart.Store(cfg.Now().UnixNano())
	return g
}

// Allow reports whether one more paid call may proceed. threshold is the
// fraction of the daily budget available to the caller; values <= 0 mean 1.0.
// A permitted decision consumes one hourly request slot.
func (g *Governor) Allow(ctx context.Context, threshold float64) Decision {
	if threshold <= 0 {
		threshold = InteractiveThreshold
	}

	now := g.cfg.Now()
	g.resetWindow(now)

	d := Decision{SpendLimit: g.cfg.DailyBudget * threshold}

	if spend, ok := g.todaySpend(ctx, now); ok {
		d.TodaySpend = spend
		if spend+g.cfg.EstimatedCallCost > d.SpendLimit {
			d.Reason = ReasonBudgetExceeded
			d.HourlyCount = int(g.count.Load())
			return g.decide(d)
		}
	}

	for {
		c := g.count.Load()
		if c >= int64(g.cfg.HourlyRequestCap) {
			d.Reason = ReasonRateLimited
			d.HourlyCount = int(c)
			return g.decide(d)
		}
		if g.count.CompareAndSwap(c, c+1) {
			d.HourlyCount = int(c + 1)
			break
		}
	}

	d.Allowed = true
	d.Reason = ReasonOK
	return g.decide(d)
}

func (g *Governor) decide(d Decision) Decision {
	metrics.GovernorDecisions.WithLabelValues(string(d.Reason)).Inc()
	if !d.Allowed {
		g.log.Debug().
			Str("reason", string(d.Reason)).
			Int("hourly_count", d.HourlyCount).
			Float64("today_spend", d.TodaySpend).
			Float64("limit", d.SpendLimit).
			Msg("inference call denied")
	}
	return d
}

// resetWindow zeroes the counter once the hour window has elapsed. Concurrent
// callers race on the window start; only the CAS winner resets.
func (g *Governor) resetWindow(now time.Time) {
	start := g.windowStart.Load()
	if now.UnixNano()-start < int64(window) {
		return
	}
	if g.windowStart.CompareAndSwap(start, now.UnixNano()) {
		g.count.Store(0)
	}
}

// todaySpend returns today's spend, or false when the store cannot answer.
func (g *Governor) todaySpend(ctx context.Context, now time.Time) (float64, bool) {
	if g.store == nil || !g.store.IsAvailable() {
		return 0, false
	}
	spend, err := g.store.DailySpend(ctx, now.Format(storage.DateLayout))
	if err != nil {
		g.log.Warn().Err(err).Msg("usage store unavailable, skipping spend check")
		return 0, false
	}
	return spend, true
}

// Cost returns the estimated USD cost of tokens for model.
func (g *Governor) Cost(model string, tokens int) float64 {
	p, ok := g.cfg.Pricing[model]
	if !ok {
		p = g.cfg.DefaultPricing
	}
	return float64(tokens) / 1000 * p.Average()
}

// Record attributes tokens for model to today's usage record and returns the
// estimated cost. Store failures are logged, not returned.
func (g *Governor) Record(ctx context.Context, model string, tokens int) float64 {
	cost := g.Cost(model, tokens)
	metrics.TokensUsed.WithLabelValues(model).Add(float64(tokens))

	if g.store == nil || !g.store.IsAvailable() {
		return cost
	}

	date := g.cfg.Now().Format(storage.DateLayout)
	if err := g.store.IncrementUsage(ctx, date, model, tokens, cost); err != nil {
		g.log.Warn().Err(err).Str("model", model).Int("tokens", tokens).Msg("failed to record usage")
	}
	return cost
}

// Snapshot describes the governor state for reporting.
type Snapshot struct {
	HourlyCount    int                   `json:"hourly_count"`
	HourlyCap      int                   `json:"hourly_cap"`
	WindowResetsAt time.Time             `json:"window_resets_at"`
	TodaySpend     float64               `json:"today_spend"`
	DailyBudget    float64               `json:"daily_budget"`
	StoreAvailable bool                  `json:"store_available"`
	Records        []storage.UsageRecord `json:"records,omitempty"`
}

// Snapshot returns the current counters and today's usage.
func (g *Governor) Snapshot(ctx context.Context) Snapshot {
	now := g.cfg.Now()
	g.resetWindow(now)

	s := Snapshot{
		HourlyCount:    int(g.count.Load()),
		HourlyCap:      g.cfg.HourlyRequestCap,
		WindowResetsAt: time.Unix(0, g.windowStart.Load()).Add(window),
		DailyBudget:    g.cfg.DailyBudget,
	}

	if spend, ok := g.todaySpend(ctx, now); ok {
		s.StoreAvailable = true
		s.TodaySpend = spend
		if records, err := g.store.UsageForDate(ctx, now.Format(storage.DateLayout)); err == nil {
			s.Records = records
		}
	}

	return s
}
