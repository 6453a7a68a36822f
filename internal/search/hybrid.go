package search

import (
	"context"
	"strings"

	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// FusionConfig defines weights for hybrid score fusion.
type FusionConfig struct {
	SemanticWeight float64
	KeywordWeight  float64
}

// DefaultFusionConfig provides balanced fusion (70% semantic, 30% keyword).
var DefaultFusionConfig = FusionConfig{
	SemanticWeight: 0.7,
	KeywordWeight:  0.3,
}

// SearchIntent ranks items against free-text intent by fusing semantic and
// BM25 scores. When the intent cannot be embedded it returns BM25 results.
// keywords may be nil, in which case only semantic scores are used.
func (x *Index) SearchIntent(ctx context.Context, keywords *KeywordIndex, text string, items []pet.Item, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 10
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var bm25Results []Match
	if keywords != nil {
		var err error
		bm25Results, err = keywords.SearchBM25(text, limit*2)
		if err != nil {
			return nil, err
		}
	}

	semanticResults := x.semanticMatches(ctx, text, items)
	if semanticResults == nil {
		return truncate(bm25Results, limit), nil
	}

	fused := fuseScores(normalizeScores(bm25Results), normalizeScores(semanticResults), DefaultFusionConfig)
	sortMatches(fused)
	return truncate(fused, limit), nil
}

// semanticMatches scores items by cosine similarity to text. It returns nil
// when the text cannot be embedded.
func (x *Index) semanticMatches(ctx context.Context, text string, items []pet.Item) []Match {
	queryVec := x.QueryVector(ctx, text)
	if queryVec == nil {
		return nil
	}

	matches := make([]Match, 0, len(items))
	for _, item := range items {
		vec := x.ItemVector(ctx, item)
		if vec == nil {
			continue
		}
		matches = append(matches, Match{
			ItemID: item.ID,
			Item:   item,
			Score:  cosineSimilarity(queryVec, vec),
			Source: SourceSemantic,
		})
	}
	return matches
}

// fuseScores combines BM25 and semantic results using weighted fusion.
func fuseScores(bm25Results, semanticResults []Match, config FusionConfig) []Match {
	semanticMap := make(map[string]Match, len(semanticResults))
	for _, result := range semanticResults {
		semanticMap[result.ItemID] = result
	}

	bm25Map := make(map[string]Match, len(bm25Results))
	for _, result := range bm25Results {
		bm25Map[result.ItemID] = result
	}

	allIDs := make(map[string]bool)
	for _, result := range bm25Results {
		allIDs[result.ItemID] = true
	}
	for _, result := range semanticResults {
		allIDs[result.ItemID] = true
	}

	fusedResults := make([]Match, 0, len(allIDs))

	for id := range allIDs {
		bm25Result, hasBM25 := bm25Map[id]
		semanticResult, hasSemantic := semanticMap[id]

		var fused Match
		switch {
		case hasBM25 && hasSemantic:
			fused = semanticResult
			fused.Score = config.SemanticWeight*semanticResult.Score + config.KeywordWeight*bm25Result.Score
		case hasSemantic:
			fused = semanticResult
			fused.Score = config.SemanticWeight * semanticResult.Score
		default:
			fused = bm25Result
			fused.Score = config.KeywordWeight * bm25Result.Score
		}
		fused.Source = SourceHybrid

		fusedResults = append(fusedResults, fused)
	}

	return fusedResults
}

// normalizeScores normalizes scores to [0, 1] range.
func normalizeScores(results []Match) []Match {
	if len(results) == 0 {
		return results
	}

	minScore := results[0].Score
	maxScore := results[0].Score

	for _, result := range results {
		if result.Score < minScore {
			minScore = result.Score
		}
		if result.Score > maxScore {
			maxScore = result.Score
		}
	}

	// Avoid division by zero - when all scores are equal, set all to 1.0
	normalized := make([]Match, len(results))
	for i, result := range results {
		normalized[i] = result
		if maxScore == minScore {
			normalized[i].Score = 1.0
		} else {
			normalized[i].Score = (result.Score - minScore) / (maxScore - minScore)
		}
	}

	return normalized
}
