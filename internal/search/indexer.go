package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/moisesjgomez/open-pet-platform/internal/logging"
	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// Document is an item with the enriched text that should be searchable.
type Document struct {
	Item pet.Item
	Tags []string
	Bio  string
}

// KeywordIndex is a BM25 index over items.
type KeywordIndex struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
	indexPath  string
	items      map[string]pet.Item
}

// NewKeywordIndex creates an in-memory index.
func NewKeywordIndex() (*KeywordIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &KeywordIndex{
		bleveIndex: index,
		items:      make(map[string]pet.Item),
	}, nil
}

// NewKeywordIndexAt opens or creates a persistent index at indexPath.
func NewKeywordIndexAt(indexPath string) (*KeywordIndex, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	index, err := bleve.NewUsing(indexPath, buildIndexMapping(), scorch.Name, scorch.Name, nil)
	if err != nil {
		// If index exists, open it
		index, err = bleve.Open(indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open/create index: %w", err)
		}
	}

	return &KeywordIndex{
		bleveIndex: index,
		indexPath:  indexPath,
		items:      make(map[string]pet.Item),
	}, nil
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	itemMapping := bleve.NewDocumentMapping()

	for _, field := range []string{"name", "breed", "species", "description", "tags", "bio", "color"} {
		itemMapping.AddFieldMappingsAt(field, bleve.NewTextFieldMapping())
	}

	// Source: exact-match keyword field for filtering
	sourceMapping := bleve.NewKeywordFieldMapping()
	itemMapping.AddFieldMappingsAt("source", sourceMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", itemMapping)

	return indexMapping
}

// Index adds or replaces documents.
func (k *KeywordIndex) Index(docs []Document) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	batch := k.bleveIndex.NewBatch()

	for _, d := range docs {
		doc := map[string]interface{}{
			"name":        d.Item.Name,
			"breed":       d.Item.Breed,
			"species":     string(d.Item.Species),
			"description": d.Item.Description,
			"color":       d.Item.Color,
			"tags":        strings.Join(d.Tags, " "),
			"bio":         d.Bio,
			"source":      d.Item.Source,
		}

		if err := batch.Index(d.Item.ID, doc); err != nil {
			logging.Warn().Err(err).Str("item_id", d.Item.ID).Msg("failed to index item")
			continue
		}
		k.items[d.Item.ID] = d.Item
	}

	if err := k.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index items: %w", err)
	}

	return nil
}

// Remove deletes items by id.
func (k *KeywordIndex) Remove(ids ...string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	batch := k.bleveIndex.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
		delete(k.items, id)
	}

	if err := k.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch delete: %w", err)
	}

	return nil
}

// Count returns the total number of indexed items.
func (k *KeywordIndex) Count() (uint64, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	docCount, err := k.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}

	return docCount, nil
}

// Close closes the index and releases resources.
func (k *KeywordIndex) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.bleveIndex != nil {
		return k.bleveIndex.Close()
	}

	return nil
}

// buildMatchQuery creates a match query for BM25 search.
func buildMatchQuery(searchText string) query.Query {
	return bleve.NewMatchQuery(searchText)
}
