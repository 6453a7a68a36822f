package enrich

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moisesjgomez/open-pet-platform/internal/cache"
	"github.com/moisesjgomez/open-pet-platform/internal/governor"
	"github.com/moisesjgomez/open-pet-platform/internal/inference"
	"github.com/moisesjgomez/open-pet-platform/internal/pet"
	"github.com/moisesjgomez/open-pet-platform/internal/storage"
)

// fakeClient returns canned results and counts calls.
type fakeClient struct {
	textCalls  atomic.Int32
	imageCalls atomic.Int32

	text       string
	textTokens int
	textErr    error
	panicText  bool

	imageTokens int
	imageErr    error
	delay       time.Duration
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		text:        `{"bio":"Bruno is a happy Labrador.","summary":"Happy lab.","tags":["Outdoorsy"]}`,
		textTokens:  100,
		imageTokens: 50,
	}
}

func (f *fakeClient) GenerateText(ctx context.Context, req inference.TextRequest) (inference.TextResult, error) {
	f.textCalls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panicText {
		panic("client bug")
	}
	if f.textErr != nil {
		return inference.TextResult{}, f.textErr
	}
	return inference.TextResult{Text: f.text, TokensUsed: f.textTokens, Model: "gpt-4o-mini"}, nil
}

func (f *fakeClient) Embed(ctx context.Context, text string) (inference.EmbedResult, error) {
	return inference.EmbedResult{}, inference.ErrUnavailable
}

func (f *fakeClient) AnalyzeImages(ctx context.Context, urls []string) (inference.ImageAnalysis, error) {
	f.imageCalls.Add(1)
	if f.imageErr != nil {
		return inference.ImageAnalysis{}, f.imageErr
	}
	return inference.ImageAnalysis{
		BreedGuess:     "Labrador",
		Color:          "Black",
		ObservedTraits: []string{"Relaxed"},
		TokensUsed:     f.imageTokens,
		Model:          "gpt-4o-mini",
	}, nil
}

type fixture struct {
	orch   *Orchestrator
	client *fakeClient
	store  *storage.SQLiteStorage
	cache  *cache.Store
}

func openGovernor(store governor.UsageStore) *governor.Governor {
	return governor.New(governor.Config{
		HourlyRequestCap:  1000,
		DailyBudget:       100,
		EstimatedCallCost: 0.001,
		DefaultPricing:    governor.Pricing{InputPer1K: 0.001, OutputPer1K: 0.002},
	}, store)
}

func newFixture(t *testing.T, configure func(*governor.Config)) *fixture {
	t.Helper()

	store := storage.NewStorage(filepath.Join(t.TempDir(), "enrich.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	govCfg := governor.Config{
		HourlyRequestCap:  1000,
		DailyBudget:       100,
		EstimatedCallCost: 0.001,
		DefaultPricing:    governor.Pricing{InputPer1K: 0.001, OutputPer1K: 0.002},
	}
	if configure != nil {
		configure(&govCfg)
	}

	client := newFakeClient()
	cacheStore := cache.NewStore(store, cache.Options{})
	orch := NewOrchestrator(
		NewRepository(store, nil),
		cacheStore,
		governor.New(govCfg, store),
		client,
		Config{SerializePerItem: true, CallTimeout: time.Second},
	)

	return &fixture{orch: orch, client: client, store: store, cache: cacheStore}
}

func labrador(id string) pet.Item {
	return pet.Item{
		ID:          id,
		Name:        "Bruno",
		Species:     pet.SpeciesDog,
		Breed:       "Labrador",
		Age:         "3 years",
		Description: "Bruno loves to run and hike all day",
		Images:      []string{"https://img/1.jpg"},
	}
}

func TestEnrich_ColdItemNoBudget(t *testing.T) {
	f := newFixture(t, func(c *governor.Config) {
		c.DailyBudget = 0.01
		c.EstimatedCallCost = 0.02
	})

	item := pet.Item{
		ID:                     "sl-1",
		Species:                pet.SpeciesDog,
		Breed:                  "Labrador",
		Age:                    "3 years",
		Description:            "",
		IsSyntheticDescription: true,
	}

	res := f.orch.Enrich(context.Background(), item, Options{RunAI: true})

	assert.Equal(t, []string{"Dog", "Adult"}, res.Content.Tags)
	assert.Equal(t, pet.EnergyModerate, res.Content.EnergyLevel)
	assert.Equal(t, TierHeuristic, res.Content.Tier)
	assert.Equal(t, 0, res.TokensUsed)
	assert.True(t, res.BudgetDenied)
	assert.Contains(t, res.Content.Bio, "hasn't shared notes about their personality")
	assert.Equal(t, int32(0), f.client.textCalls.Load())
}

func TestEnrich_TierMonotonicAndCached(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	item := labrador("sl-1")

	first := f.orch.Enrich(ctx, item, Options{RunAI: true})
	require.Equal(t, TierBasic, first.Content.Tier)
	assert.Equal(t, 100, first.TokensUsed)
	assert.Equal(t, "Bruno is a happy Labrador.", first.Content.Bio)
	assert.Equal(t, []string{"Outdoorsy"}, first.Content.AITags)

	second := f.orch.Enrich(ctx, item, Options{RunAI: true})
	assert.GreaterOrEqual(t, int(second.Content.Tier), int(first.Content.Tier))
	assert.Equal(t, 0, second.TokensUsed)
	assert.True(t, second.Cached)

	// A heuristic request never downgrades stored content.
	third := f.orch.Enrich(ctx, item, Options{})
	assert.Equal(t, TierBasic, third.Content.Tier)

	assert.Equal(t, int32(1), f.client.textCalls.Load())
}

func TestEnrich_DedupCopiesBasicContent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := labrador("sl-1")
	b := labrador("pf-9")
	b.Name = "Bruno (Petfinder)"
	b.Source = "petfinder"

	first := f.orch.Enrich(ctx, a, Options{RunAI: true})
	require.Equal(t, TierBasic, first.Content.Tier)

	second := f.orch.Enrich(ctx, b, Options{RunAI: false})
	assert.Equal(t, TierBasic, second.Content.Tier)
	assert.Equal(t, 0, second.TokensUsed)
	assert.Equal(t, 0, second.Content.TokensUsed)
	assert.Equal(t, "pf-9", second.Content.ItemID)
	assert.True(t, second.Deduplicated)
}

func TestEnrich_DuplicateFingerprintAcrossShelters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a := labrador("sl-1")
	b := labrador("pf-9")

	first := f.orch.Enrich(ctx, a, Options{RunAI: true, RunImageAnalysis: true})
	require.Equal(t, TierFull, first.Content.Tier)
	require.Equal(t, 150, first.TokensUsed)

	second := f.orch.Enrich(ctx, b, Options{RunAI: true})
	assert.Equal(t, TierFull, second.Content.Tier)
	assert.Equal(t, 0, second.TokensUsed)
	assert.Equal(t, first.Content.Bio, second.Content.Bio)
	assert.Equal(t, first.Content.ImageAnalysis, second.Content.ImageAnalysis)

	assert.Equal(t, int32(1), f.client.textCalls.Load())
	assert.Equal(t, int32(1), f.client.imageCalls.Load())
}

func TestEnrich_FingerprintChangeInvalidates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	item := labrador("sl-1")

	require.Equal(t, TierBasic, f.orch.Enrich(ctx, item, Options{RunAI: true}).Content.Tier)

	item.Description = "Now prefers quiet naps on the couch"
	res := f.orch.Enrich(ctx, item, Options{})
	assert.Equal(t, TierHeuristic, res.Content.Tier)
	assert.Contains(t, res.Content.Tags, "Calm")
	assert.Equal(t, pet.Fingerprint(item), res.Content.Fingerprint)
}

func TestEnrich_ForceRefreshPaysAgain(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	item := labrador("sl-1")

	f.orch.Enrich(ctx, item, Options{RunAI: true})

	// The bio cache still holds the text, so a forced refresh reuses it.
	res := f.orch.Enrich(ctx, item, Options{RunAI: true, ForceRefresh: true})
	assert.Equal(t, TierBasic, res.Content.Tier)
	assert.Equal(t, 0, res.TokensUsed)
	assert.Equal(t, int32(1), f.client.textCalls.Load())

	f.cache.Invalidate(ctx, cache.Key(cache.CategoryBio, pet.Fingerprint(item)))
	res = f.orch.Enrich(ctx, item, Options{RunAI: true, ForceRefresh: true})
	assert.Equal(t, 100, res.TokensUsed)
	assert.Equal(t, int32(2), f.client.textCalls.Load())
}

func TestEnrich_ForceRefreshKeepsStoredTierWhenDenied(t *testing.T) {
	f := newFixture(t, func(c *governor.Config) { c.HourlyRequestCap = 1 })
	ctx := context.Background()
	item := labrador("sl-1")

	first := f.orch.Enrich(ctx, item, Options{RunAI: true})
	require.Equal(t, TierBasic, first.Content.Tier)
	require.Equal(t, 100, first.TokensUsed)

	f.cache.Invalidate(ctx, cache.Key(cache.CategoryBio, pet.Fingerprint(item)))
	res := f.orch.Enrich(ctx, item, Options{RunAI: true, ForceRefresh: true})

	assert.True(t, res.BudgetDenied)
	assert.Equal(t, TierBasic, res.Content.Tier)
	assert.False(t, res.Generated)
	assert.Equal(t, "Bruno is a happy Labrador.", res.Content.Bio)
	assert.Equal(t, 0, res.TokensUsed)

	stored, ok := f.orch.Repository().Get(ctx, item.ID)
	require.True(t, ok)
	assert.Equal(t, TierBasic, stored.Tier)
	assert.Equal(t, "Bruno is a happy Labrador.", stored.Bio)
	assert.Equal(t, 100, stored.TokensUsed)
}

func TestEnrich_ForceRefreshKeepsStoredTierOnFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	item := labrador("sl-1")

	f.orch.Enrich(ctx, item, Options{RunAI: true})
	f.cache.Invalidate(ctx, cache.Key(cache.CategoryBio, pet.Fingerprint(item)))
	f.client.textErr = inference.ErrUnavailable

	res := f.orch.Enrich(ctx, item, Options{RunAI: true, ForceRefresh: true})
	assert.False(t, res.BudgetDenied)
	assert.Equal(t, TierBasic, res.Content.Tier)
	assert.Equal(t, "Bruno is a happy Labrador.", res.Content.Bio)

	// A changed fingerprint is a new item as far as the floor is concerned.
	item.Description = "Quiet lap dog"
	res = f.orch.Enrich(ctx, item, Options{RunAI: true, ForceRefresh: true})
	assert.Equal(t, TierHeuristic, res.Content.Tier)
}

func TestEnrich_BioCacheSurvivesRepositoryLoss(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	item := labrador("sl-1")

	f.orch.Enrich(ctx, item, Options{RunAI: true})

	// Fresh repository without durable content, same cache.
	orch := NewOrchestrator(NewRepository(nil, nil), f.cache, openGovernor(nil), f.client, Config{})
	res := orch.Enrich(ctx, item, Options{RunAI: true})

	assert.Equal(t, TierBasic, res.Content.Tier)
	assert.Equal(t, 0, res.TokensUsed)
	assert.True(t, res.Generated)
	assert.Equal(t, int32(1), f.client.textCalls.Load())
}

func TestEnrich_SoftFailures(t *testing.T) {
	cases := map[string]func(*fakeClient){
		"unavailable": func(c *fakeClient) { c.textErr = inference.ErrUnavailable },
		"network":     func(c *fakeClient) { c.textErr = errors.New("connection reset") },
		"malformed":   func(c *fakeClient) { c.text = "Sure! Here is a bio:" },
		"panic":       func(c *fakeClient) { c.panicText = true },
	}

	for name, breakClient := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, nil)
			breakClient(f.client)

			res := f.orch.Enrich(context.Background(), labrador("sl-1"), Options{RunAI: true, RunImageAnalysis: true})

			assert.Equal(t, TierHeuristic, res.Content.Tier)
			assert.Equal(t, "Bruno loves to run and hike all day", res.Content.Bio)
			assert.Contains(t, res.Content.Tags, "Active")
			assert.Equal(t, int32(0), f.client.imageCalls.Load(), "image analysis needs the text tier")
		})
	}
}

func TestEnrich_MalformedOutputStillCountsTokens(t *testing.T) {
	f := newFixture(t, nil)
	f.client.text = "not json"

	res := f.orch.Enrich(context.Background(), labrador("sl-1"), Options{RunAI: true})
	assert.Equal(t, TierHeuristic, res.Content.Tier)
	assert.Equal(t, 100, res.TokensUsed)

	spend, err := f.store.DailySpend(context.Background(), time.Now().Format(storage.DateLayout))
	require.NoError(t, err)
	assert.Greater(t, spend, 0.0)
}

func TestEnrich_ImageFailureKeepsBasic(t *testing.T) {
	f := newFixture(t, nil)
	f.client.imageErr = inference.ErrUnavailable

	res := f.orch.Enrich(context.Background(), labrador("sl-1"), Options{RunImageAnalysis: true})
	assert.Equal(t, TierBasic, res.Content.Tier)
	assert.Nil(t, res.Content.ImageAnalysis)
	assert.Equal(t, 100, res.TokensUsed)
}

func TestEnrich_SerializesSameItem(t *testing.T) {
	f := newFixture(t, nil)
	f.client.delay = 20 * time.Millisecond
	item := labrador("sl-1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.orch.Enrich(context.Background(), item, Options{RunAI: true})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.client.textCalls.Load())
	assert.Equal(t, 0, f.orch.locks.size())
}

func TestEnrich_IsFresh(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	item := labrador("sl-1")

	assert.False(t, f.orch.IsFresh(ctx, item, Options{}))
	f.orch.Enrich(ctx, item, Options{})
	assert.True(t, f.orch.IsFresh(ctx, item, Options{}))
	assert.False(t, f.orch.IsFresh(ctx, item, Options{RunAI: true}))
	assert.False(t, f.orch.IsFresh(ctx, item, Options{ForceRefresh: true}))
}

func TestRepository_DurableRoundTrip(t *testing.T) {
	store := storage.NewStorage(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, store.Init())
	defer store.Close()

	writer := storage.NewWriter(time.Second)
	repo := NewRepository(store, writer)
	ctx := context.Background()

	repo.Save(ctx, Content{ItemID: "a", Fingerprint: "fp", Tier: TierFull, Bio: "hi", TokensUsed: 150})
	writer.Stop()

	fresh := NewRepository(store, nil)
	got, ok := fresh.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, TierFull, got.Tier)
	assert.Equal(t, "hi", got.Bio)

	dup, ok := fresh.FindByFingerprint(ctx, "fp", TierBasic, "b")
	require.True(t, ok)
	assert.Equal(t, "a", dup.ItemID)
}

func TestTier(t *testing.T) {
	assert.True(t, TierHeuristic < TierBasic && TierBasic < TierFull)

	for _, tier := range []Tier{TierHeuristic, TierBasic, TierFull} {
		b, err := tier.MarshalText()
		require.NoError(t, err)
		var parsed Tier
		require.NoError(t, parsed.UnmarshalText(b))
		assert.Equal(t, tier, parsed)
	}

	_, err := ParseTier("premium")
	assert.Error(t, err)
}
