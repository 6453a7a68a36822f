/*
Package cli implements the open-pet-platform commands.

Every command that touches data builds an app from the loaded configuration.
The app owns the durable store, the cache backend, the budget governor and
the inference client, and must be closed when the command returns.
*/
package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/moisesjgomez/open-pet-platform/internal/cache"
	"github.com/moisesjgomez/open-pet-platform/internal/config"
	"github.com/moisesjgomez/open-pet-platform/internal/enrich"
	"github.com/moisesjgomez/open-pet-platform/internal/governor"
	"github.com/moisesjgomez/open-pet-platform/internal/inference"
	"github.com/moisesjgomez/open-pet-platform/internal/learning"
	"github.com/moisesjgomez/open-pet-platform/internal/logging"
	"github.com/moisesjgomez/open-pet-platform/internal/pet"
	"github.com/moisesjgomez/open-pet-platform/internal/search"
	"github.com/moisesjgomez/open-pet-platform/internal/source"
	"github.com/moisesjgomez/open-pet-platform/internal/storage"
)

// app is the wired runtime shared by the data commands.
type app struct {
	cfg *config.Config

	store   *storage.SQLiteStorage
	redis   *cache.RedisBackend
	writer  *storage.Writer
	cache   *cache.Store
	gov     *governor.Governor
	client  inference.Client
	items   *source.Memory
	repo    *enrich.Repository
	orch    *enrich.Orchestrator
	service *enrich.Service
	index   *search.Index
}

// openApp wires the runtime. Only an unreadable items file is fatal; every
// other missing dependency degrades.
func openApp(cfg *config.Config) (*app, error) {
	log := logging.Component("cli")
	a := &app{cfg: cfg}

	if cfg.Storage.Disabled {
		a.store = storage.Disabled()
	} else {
		a.store = storage.NewStorage(cfg.Storage.Path)
		if err := a.store.Init(); err != nil {
			log.Warn().Err(err).Msg("continuing without durable storage")
		}
	}

	var backend cache.Backend
	switch cfg.Cache.Backend {
	case "redis":
		rb, err := cache.NewRedisBackend(cache.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, caching in memory")
		} else {
			a.redis = rb
			backend = rb
		}
	case "sqlite":
		backend = a.store
	}
	a.cache = cache.NewStore(backend, cache.Options{
		Policy:        cachePolicy(cfg.Cache),
		LocalCapacity: cfg.Cache.LocalCapacity,
	})

	a.gov = governor.New(governorConfig(cfg.Governor), a.store)
	a.client = newClient(cfg.Inference)

	if cfg.Source.ItemsFile != "" {
		items, err := source.LoadFile(cfg.Source.ItemsFile)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.items = items
	} else {
		log.Warn().Msg("source.items_file is not set, no items loaded")
		a.items = source.NewMemory()
	}

	if cfg.Enrich.AsyncWrites {
		a.writer = storage.NewWriter(cfg.Enrich.WriteTimeout)
	}
	a.repo = enrich.NewRepository(a.store, a.writer)
	a.orch = enrich.NewOrchestrator(a.repo, a.cache, a.gov, a.client, enrich.Config{
		SerializePerItem: cfg.Enrich.SerializePerItem,
		CallTimeout:      cfg.Enrich.CallTimeout,
		Temperature:      cfg.Enrich.Temperature,
		MaxTokens:        cfg.Enrich.MaxTokens,
	})
	a.service = enrich.NewService(a.items, a.orch)
	a.index = search.NewIndex(a.client, a.gov, a.store, a.cache, search.IndexConfig{
		CallTimeout: cfg.Enrich.CallTimeout,
		SourceTag:   cfg.Inference.EmbeddingModel,
	})

	return a, nil
}

// Close flushes pending writes and releases connections.
func (a *app) Close() {
	if a.writer != nil {
		a.writer.Stop()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Warn().Err(err).Msg("failed to close storage")
		}
	}
}

// allItems returns every loaded item.
func (a *app) allItems(ctx context.Context) ([]pet.Item, error) {
	return a.items.GetAllItems(ctx)
}

// documents pairs each item with whatever enriched content is stored for it.
func (a *app) documents(ctx context.Context, items []pet.Item) []search.Document {
	docs := make([]search.Document, 0, len(items))
	for _, item := range items {
		doc := search.Document{Item: item}
		if c, ok := a.repo.Get(ctx, item.ID); ok {
			doc.Tags = c.AllTags()
			doc.Bio = c.Bio
		}
		docs = append(docs, doc)
	}
	return docs
}

// features converts items into learning features using stored tags.
func (a *app) features(ctx context.Context, items []pet.Item) []learning.Features {
	out := make([]learning.Features, 0, len(items))
	for _, item := range items {
		var tags []string
		if c, ok := a.repo.Get(ctx, item.ID); ok {
			tags = c.AllTags()
		}
		out = append(out, learning.FeaturesOf(item, tags))
	}
	return out
}

func newClient(cfg config.InferenceConfig) inference.Client {
	if cfg.APIKey == "" {
		logging.Info().Msg("inference.api_key is not set, running heuristics only")
		return inference.Unavailable{}
	}
	client, err := inference.NewOpenAIClient(inference.Config{
		BaseURL:             cfg.BaseURL,
		APIKey:              cfg.APIKey,
		ChatModel:           cfg.ChatModel,
		VisionModel:         cfg.VisionModel,
		EmbeddingModel:      cfg.EmbeddingModel,
		Timeout:             cfg.Timeout,
		RequestsPerSecond:   cfg.RequestsPerSecond,
		Burst:               cfg.Burst,
		BreakerFailureRatio: cfg.BreakerFailureRatio,
		BreakerMinRequests:  cfg.BreakerMinRequests,
		BreakerOpenTimeout:  cfg.BreakerOpenTimeout,
	})
	if err != nil {
		logging.Warn().Err(err).Msg("inference client unavailable")
		return inference.Unavailable{}
	}
	return client
}

func cachePolicy(cfg config.CacheConfig) cache.Policy {
	p := cache.DefaultPolicy()
	p[cache.CategoryBio] = cfg.BioTTL
	p[cache.CategoryRecommendation] = cfg.RecommendationTTL
	p[cache.CategoryChat] = cfg.ChatTTL
	p[cache.CategoryImage] = cfg.ImageTTL
	return p
}

func governorConfig(cfg config.GovernorConfig) governor.Config {
	pricing := make(map[string]governor.Pricing, len(cfg.Pricing))
	for model, p := range cfg.Pricing {
		pricing[model] = governor.Pricing{InputPer1K: p.InputPer1K, OutputPer1K: p.OutputPer1K}
	}
	return governor.Config{
		HourlyRequestCap:  cfg.HourlyRequestCap,
		DailyBudget:       cfg.DailyBudget,
		EstimatedCallCost: cfg.EstimatedCallCost,
		Pricing:           pricing,
		DefaultPricing: governor.Pricing{
			InputPer1K:  cfg.DefaultPricing.InputPer1K,
			OutputPer1K: cfg.DefaultPricing.OutputPer1K,
		},
	}
}

// profileStore is a learning.ProfileStore with an optional close step.
type profileStore struct {
	learning.ProfileStore
	close func() error
}

func (p profileStore) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// openProfileStore opens the configured preference store.
func openProfileStore(cfg config.LearningConfig) (profileStore, error) {
	dir := cfg.Dir
	if dir == "" {
		base, err := config.DataDir()
		if err != nil {
			return profileStore{}, err
		}
		dir = base
	}

	switch cfg.Store {
	case "badger":
		if cfg.Dir == "" {
			dir = filepath.Join(dir, "profiles.badger")
		}
		bs, err := learning.OpenBadgerStore(dir)
		if err != nil {
			return profileStore{}, fmt.Errorf("failed to open profile store: %w", err)
		}
		return profileStore{ProfileStore: bs, close: bs.Close}, nil
	default:
		if cfg.Dir == "" {
			dir = filepath.Join(dir, "profiles")
		}
		return profileStore{ProfileStore: learning.NewFileStore(dir)}, nil
	}
}
