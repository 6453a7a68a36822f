package search

import (
	"path/filepath"
	"testing"

	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

func sampleDocs() []Document {
	return []Document{
		{
			Item: pet.Item{ID: "sl-1", Name: "Bruno", Species: pet.SpeciesDog, Breed: "Labrador", Source: "shelterluv", Description: "Bruno loves to run and hike all day"},
			Tags: []string{"Dog", "Adult", "Active"},
		},
		{
			Item: pet.Item{ID: "pf-2", Name: "Mochi", Species: pet.SpeciesCat, Breed: "Siamese", Source: "petfinder", Description: "Mochi naps in sunbeams"},
			Tags: []string{"Cat", "Senior", "Couch Potato"},
			Bio:  "A gentle lap cat",
		},
		{
			Item: pet.Item{ID: "pf-3", Name: "Pepper", Species: pet.SpeciesDog, Breed: "Beagle", Source: "petfinder", Description: "Pepper will hike with you"},
			Tags: []string{"Dog", "Young"},
		},
	}
}

func newTestKeywordIndex(t *testing.T) *KeywordIndex {
	t.Helper()
	index, err := NewKeywordIndex()
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	t.Cleanup(func() { index.Close() })

	if err := index.Index(sampleDocs()); err != nil {
		t.Fatalf("failed to index items: %v", err)
	}
	return index
}

func TestNewKeywordIndex(t *testing.T) {
	index := newTestKeywordIndex(t)

	count, err := index.Count()
	if err != nil {
		t.Fatalf("failed to get count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 indexed items, got %d", count)
	}
}

func TestSearchBM25(t *testing.T) {
	index := newTestKeywordIndex(t)

	results, err := index.SearchBM25("labrador", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].ItemID != "sl-1" {
		t.Errorf("expected sl-1 first, got %s", results[0].ItemID)
	}
	if results[0].Item.Name != "Bruno" {
		t.Errorf("expected item to be attached, got %q", results[0].Item.Name)
	}
	if results[0].Source != SourceKeyword {
		t.Errorf("expected keyword source, got %s", results[0].Source)
	}
}

func TestSearchBM25_MatchesTagsAndBio(t *testing.T) {
	index := newTestKeywordIndex(t)

	results, err := index.SearchBM25("gentle", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].ItemID != "pf-2" {
		t.Errorf("expected bio match on pf-2, got %+v", results)
	}

	results, err = index.SearchBM25("active", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) == 0 || results[0].ItemID != "sl-1" {
		t.Errorf("expected tag match on sl-1, got %+v", results)
	}
}

func TestSearchBySource(t *testing.T) {
	index := newTestKeywordIndex(t)

	results, err := index.SearchBySource("hike", "petfinder", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ItemID != "pf-3" {
		t.Errorf("expected pf-3, got %s", results[0].ItemID)
	}
}

func TestRemove(t *testing.T) {
	index := newTestKeywordIndex(t)

	if err := index.Remove("sl-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	results, err := index.SearchBM25("labrador", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results after removal, got %d", len(results))
	}
}

func TestNewKeywordIndexAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "items.bleve")

	index, err := NewKeywordIndexAt(path)
	if err != nil {
		t.Fatalf("failed to create persistent index: %v", err)
	}
	if err := index.Index(sampleDocs()); err != nil {
		t.Fatalf("failed to index items: %v", err)
	}
	if err := index.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := NewKeywordIndexAt(path)
	if err != nil {
		t.Fatalf("failed to reopen index: %v", err)
	}
	defer reopened.Close()

	count, err := reopened.Count()
	if err != nil {
		t.Fatalf("failed to get count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 persisted items, got %d", count)
	}
}
