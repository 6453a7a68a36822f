package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchBM25 performs BM25 keyword search over indexed items.
func (k *KeywordIndex) SearchBM25(text string, limit int) ([]Match, error) {
	return k.search(buildMatchQuery(text), limit)
}

// SearchBySource performs BM25 search scoped to one upstream source tag.
func (k *KeywordIndex) SearchBySource(text, source string, limit int) ([]Match, error) {
	sourceQuery := bleve.NewTermQuery(source)
	sourceQuery.SetField("source")

	return k.search(bleve.NewConjunctionQuery(buildMatchQuery(text), sourceQuery), limit)
}

func (k *KeywordIndex) search(q query.Query, limit int) ([]Match, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)

	results, err := k.bleveIndex.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	matches := make([]Match, 0, len(results.Hits))
	for _, hit := range results.Hits {
		matches = append(matches, Match{
			ItemID: hit.ID,
			Item:   k.items[hit.ID],
			Score:  hit.Score,
			Source: SourceKeyword,
		})
	}

	return matches, nil
}
