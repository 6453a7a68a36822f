package search

import (
	"context"
	"math"
	"testing"

	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

func TestNormalizeScores_Empty(t *testing.T) {
	normalized := normalizeScores([]Match{})

	if len(normalized) != 0 {
		t.Errorf("expected empty result, got %d items", len(normalized))
	}
}

func TestNormalizeScores_Single(t *testing.T) {
	normalized := normalizeScores([]Match{{ItemID: "a", Score: 0.5}})

	if len(normalized) != 1 {
		t.Fatalf("expected 1 result, got %d", len(normalized))
	}
	if normalized[0].Score != 1.0 {
		t.Errorf("expected score 1.0 for single result, got %f", normalized[0].Score)
	}
}

func TestNormalizeScores_Multiple(t *testing.T) {
	results := []Match{
		{ItemID: "a", Score: 0.0},
		{ItemID: "b", Score: 0.5},
		{ItemID: "c", Score: 1.0},
	}
	normalized := normalizeScores(results)

	expected := []float64{0.0, 0.5, 1.0}
	for i, want := range expected {
		if math.Abs(normalized[i].Score-want) > 0.0001 {
			t.Errorf("result %d: expected score %f, got %f", i, want, normalized[i].Score)
		}
	}
	if results[2].Score != 1.0 || results[1].Score != 0.5 {
		t.Error("normalizeScores must not modify its input")
	}
}

func TestFuseScores(t *testing.T) {
	bm25 := []Match{{ItemID: "a", Score: 1.0}, {ItemID: "b", Score: 0.5}}
	semantic := []Match{{ItemID: "a", Score: 0.5}, {ItemID: "c", Score: 1.0}}

	fused := fuseScores(bm25, semantic, DefaultFusionConfig)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(fused))
	}

	scores := make(map[string]float64)
	for _, m := range fused {
		scores[m.ItemID] = m.Score
		if m.Source != SourceHybrid {
			t.Errorf("expected hybrid source, got %s", m.Source)
		}
	}

	want := map[string]float64{"a": 0.7*0.5 + 0.3*1.0, "b": 0.3 * 0.5, "c": 0.7}
	for id, w := range want {
		if math.Abs(scores[id]-w) > 0.0001 {
			t.Errorf("%s: expected %f, got %f", id, w, scores[id])
		}
	}
}

func TestSearchIntent_FallsBackToBM25(t *testing.T) {
	keywords := newTestKeywordIndex(t)
	index := NewIndex(&wordEmbedder{fail: true}, openGovernor(100), nil, nil, IndexConfig{})

	items := make([]pet.Item, 0, 3)
	for _, d := range sampleDocs() {
		items = append(items, d.Item)
	}

	results, err := index.SearchIntent(context.Background(), keywords, "beagle", items, 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) == 0 || results[0].ItemID != "pf-3" {
		t.Fatalf("expected pf-3 from keyword fallback, got %+v", results)
	}
	if results[0].Source != SourceKeyword {
		t.Errorf("expected keyword source, got %s", results[0].Source)
	}
}

func TestSearchIntent_Hybrid(t *testing.T) {
	keywords := newTestKeywordIndex(t)
	index := NewIndex(&wordEmbedder{}, openGovernor(100), nil, nil, IndexConfig{})

	items := make([]pet.Item, 0, 3)
	for _, d := range sampleDocs() {
		items = append(items, d.Item)
	}

	results, err := index.SearchIntent(context.Background(), keywords, "dog to hike and run", items, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ItemID != "sl-1" {
		t.Errorf("expected sl-1 first, got %s", results[0].ItemID)
	}
	for _, r := range results {
		if r.Source != SourceHybrid {
			t.Errorf("expected hybrid source, got %s", r.Source)
		}
	}
}

func TestSearchIntent_EmptyText(t *testing.T) {
	index := NewIndex(nil, nil, nil, nil, IndexConfig{})

	results, err := index.SearchIntent(context.Background(), nil, "  ", nil, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
