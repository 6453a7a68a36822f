package search

import (
	"context"
	"strings"

	"github.com/moisesjgomez/open-pet-platform/internal/heuristics"
	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// Query describes the attributes a user is looking for. Zero fields are
// ignored.
type Query struct {
	Species      pet.Species `json:"species,omitempty"`
	Size         pet.Size    `json:"size,omitempty"`
	Energy       pet.Energy  `json:"energy,omitempty"`
	Traits       []string    `json:"traits,omitempty"`
	GoodWithKids bool        `json:"goodWithKids,omitempty"`
	GoodWithDogs bool        `json:"goodWithDogs,omitempty"`
	GoodWithCats bool        `json:"goodWithCats,omitempty"`

	// FreeText is appended verbatim to the rendered query.
	FreeText string `json:"text,omitempty"`
}

// Text renders the query as a sentence suitable for embedding.
func (q Query) Text() string {
	var b strings.Builder
	b.WriteString("Looking for a")
	if q.Energy != "" {
		b.WriteString(" " + strings.ToLower(string(q.Energy)) + " energy")
	}
	if q.Size != "" {
		b.WriteString(" " + strings.ToLower(string(q.Size)))
	}
	if q.Species != "" {
		b.WriteString(" " + strings.ToLower(string(q.Species)))
	} else {
		b.WriteString(" pet")
	}
	if len(q.Traits) > 0 {
		b.WriteString(" that is " + strings.ToLower(strings.Join(q.Traits, ", ")))
	}

	var with []string
	if q.GoodWithKids {
		with = append(with, "kids")
	}
	if q.GoodWithDogs {
		with = append(with, "dogs")
	}
	if q.GoodWithCats {
		with = append(with, "cats")
	}
	if len(with) > 0 {
		b.WriteString(", good with " + strings.Join(with, " and "))
	}
	b.WriteString(".")

	if t := strings.TrimSpace(q.FreeText); t != "" {
		b.WriteString(" " + t)
	}
	return b.String()
}

const (
	heuristicBase     = 0.5
	speciesMatch      = 0.2
	speciesMismatch   = -0.3
	sizeMatch         = 0.1
	energyMatch       = 0.1
	energyMismatch    = -0.05
	traitMatch        = 0.05
	traitCap          = 0.2
	compatConfirmed   = 0.05
	compatContradicts = -0.2
)

// heuristicScore rates item against q without embeddings. The result is in [0, 1].
func heuristicScore(item pet.Item, q Query) float64 {
	score := heuristicBase
	h := heuristics.Analyze(item)

	if q.Species != "" && item.Species != "" {
		if item.Species == q.Species {
			score += speciesMatch
		} else {
			score += speciesMismatch
		}
	}

	if q.Size != "" {
		size := item.Size
		if size == "" {
			size = h.SizeClass
		}
		if size == q.Size {
			score += sizeMatch
		}
	}

	if q.Energy != "" {
		energy := item.Energy
		if energy == "" {
			energy = h.EnergyLevel
		}
		if energy == q.Energy {
			score += energyMatch
		} else if energy != "" {
			score += energyMismatch
		}
	}

	if len(q.Traits) > 0 {
		tags := make(map[string]bool, len(h.Tags))
		for _, t := range h.Tags {
			tags[strings.ToLower(t)] = true
		}
		var bonus float64
		for _, t := range q.Traits {
			if tags[strings.ToLower(strings.TrimSpace(t))] {
				bonus += traitMatch
			}
		}
		if bonus > traitCap {
			bonus = traitCap
		}
		score += bonus
	}

	score += compatAdjust(q.GoodWithKids, item.Compat.Kids)
	score += compatAdjust(q.GoodWithDogs, item.Compat.Dogs)
	score += compatAdjust(q.GoodWithCats, item.Compat.Cats)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func compatAdjust(wanted bool, got pet.Tri) float64 {
	if !wanted {
		return 0
	}
	switch got {
	case pet.Yes:
		return compatConfirmed
	case pet.No:
		return compatContradicts
	default:
		return 0
	}
}

// FindSimilar ranks items against q. Items with a vector are scored by cosine
// similarity; items without one, or every item when the query cannot be
// embedded, get the heuristic score. It never fails.
func (x *Index) FindSimilar(ctx context.Context, items []pet.Item, q Query, limit int) []Match {
	queryVec := x.QueryVector(ctx, q.Text())

	matches := make([]Match, 0, len(items))
	for _, item := range items {
		m := Match{ItemID: item.ID, Item: item}

		var vec []float32
		if queryVec != nil {
			vec = x.ItemVector(ctx, item)
		}
		if vec != nil && len(vec) == len(queryVec) {
			m.Score = cosineSimilarity(queryVec, vec)
			m.Source = SourceSemantic
		} else {
			m.Score = heuristicScore(item, q)
			m.Source = SourceHeuristic
		}
		matches = append(matches, m)
	}

	sortMatches(matches)
	return truncate(matches, limit)
}
