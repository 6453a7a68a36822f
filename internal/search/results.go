/*
Package search ranks items against user intent.

Two signals are combined: cosine similarity between embedding vectors (Index)
and BM25 keyword relevance over item text and tags (KeywordIndex). Whenever
embeddings are unavailable, ranking falls back to a bounded heuristic score
or to BM25 alone, so a search never fails because the inference service is down.
*/
package search

import (
	"sort"

	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// Score sources.
const (
	SourceSemantic  = "semantic"
	SourceHeuristic = "heuristic"
	SourceKeyword   = "keyword"
	SourceHybrid    = "hybrid"
)

// Match is a ranked item.
type Match struct {
	ItemID string   `json:"itemId"`
	Item   pet.Item `json:"item"`
	Score  float64  `json:"score"`
	Source string   `json:"source"`
}

// sortMatches orders by score descending, then item id for stability.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ItemID < matches[j].ItemID
	})
}

func truncate(matches []Match, limit int) []Match {
	if limit > 0 && len(matches) > limit {
		return matches[:limit]
	}
	return matches
}
