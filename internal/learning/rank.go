package learning

import "sort"

// Scored is features with their score for a profile.
type Scored struct {
	Features
	Score float64 `json:"score"`
}

// Rank orders candidates by Score descending. Equal scores keep their input
// order. limit <= 0 returns every candidate.
func Rank(candidates []Features, p Profile, limit int) []Scored {
	ranked := make([]Scored, len(candidates))
	for i, f := range candidates {
		ranked[i] = Scored{Features: f, Score: Score(f, p)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
