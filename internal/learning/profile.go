/*
Package learning implements the per-user preference model behind the swipe deck.

A Profile is an additive weight model over tags, breed, size and energy. Update
applies swipe feedback and Undo is its exact inverse, so a mistaken swipe can
be taken back without drift. Score and Rank order items for a user, and
Explorer occasionally surfaces a lower-ranked item so the model keeps learning.
*/
package learning

import (
	"fmt"
	"slices"
	"strings"

	"github.com/moisesjgomez/open-pet-platform/internal/heuristics"
	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// Action is swipe feedback.
type Action string

const (
	Like Action = "like"
	Nope Action = "nope"
)

// ParseAction accepts "like"/"right" and "nope"/"left".
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "like", "right", "yes":
		return Like, nil
	case "nope", "left", "no", "pass":
		return Nope, nil
	default:
		return "", fmt.Errorf("unknown swipe action %q", s)
	}
}

const (
	likeMultiplier = 1.0
	nopeMultiplier = -0.3

	tagFactor   = 2.0
	classFactor = 0.5

	likedPenalty    = 1000.0
	dislikedPenalty = 500.0
)

// Profile is a user's preference model.
type Profile struct {
	TagWeights    map[string]float64 `json:"tagWeights"`
	BreedWeights  map[string]float64 `json:"breedWeights"`
	SizeWeights   map[string]float64 `json:"sizeWeights"`
	EnergyWeights map[string]float64 `json:"energyWeights"`

	Liked    []string `json:"liked"`
	Disliked []string `json:"disliked"`

	Interactions int `json:"interactions"`
}

// NewProfile returns an empty profile.
func NewProfile() Profile {
	return Profile{
		TagWeights:    map[string]float64{},
		BreedWeights:  map[string]float64{},
		SizeWeights:   map[string]float64{},
		EnergyWeights: map[string]float64{},
		Liked:         []string{},
		Disliked:      []string{},
	}
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	return Profile{
		TagWeights:    cloneWeights(p.TagWeights),
		BreedWeights:  cloneWeights(p.BreedWeights),
		SizeWeights:   cloneWeights(p.SizeWeights),
		EnergyWeights: cloneWeights(p.EnergyWeights),
		Liked:         append([]string{}, p.Liked...),
		Disliked:      append([]string{}, p.Disliked...),
		Interactions:  p.Interactions,
	}
}

// HasRated reports whether id was liked or disliked.
func (p Profile) HasRated(id string) bool {
	return slices.Contains(p.Liked, id) || slices.Contains(p.Disliked, id)
}

func cloneWeights(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Features are the attributes of an item the model learns from.
type Features struct {
	ItemID string   `json:"itemId"`
	Tags   []string `json:"tags"`
	Breed  string   `json:"breed"`
	Size   string   `json:"size"`
	Energy string   `json:"energy"`
}

// FeaturesOf extracts features from an item. tags are the enriched tags for
// the item; when empty the heuristic tags are used. Missing size and energy
// fall back to the heuristic classes.
func FeaturesOf(item pet.Item, tags []string) Features {
	h := heuristics.Analyze(item)
	if len(tags) == 0 {
		tags = h.Tags
	}

	size := item.Size
	if size == "" {
		size = h.SizeClass
	}
	energy := item.Energy
	if energy == "" {
		energy = h.EnergyLevel
	}

	seen := make(map[string]bool, len(tags))
	unique := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" && !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}

	return Features{
		ItemID: item.ID,
		Tags:   unique,
		Breed:  strings.TrimSpace(item.Breed),
		Size:   string(size),
		Energy: string(energy),
	}
}

// Score rates features against a profile. Items already rated sink to the
// bottom but remain ordered among themselves.
func Score(f Features, p Profile) float64 {
	var score float64
	for _, t := range f.Tags {
		score += tagFactor * p.TagWeights[t]
	}
	score += p.BreedWeights[f.Breed]
	score += p.SizeWeights[f.Size]
	score += p.EnergyWeights[f.Energy]

	if slices.Contains(p.Liked, f.ItemID) {
		score -= likedPenalty
	}
	if slices.Contains(p.Disliked, f.ItemID) {
		score -= dislikedPenalty
	}
	return score
}

// Update applies one swipe and returns the new profile. p is not modified.
func Update(p Profile, f Features, action Action) Profile {
	out := p.Clone()
	m := nopeMultiplier
	if action == Like {
		m = likeMultiplier
	}
	out.apply(f, m)

	if action == Like {
		out.Liked = appendUnique(out.Liked, f.ItemID)
	} else {
		out.Disliked = appendUnique(out.Disliked, f.ItemID)
	}
	out.Interactions++
	return out
}

// Undo reverses a prior Update with the same features. p is not modified.
func Undo(p Profile, f Features, wasLike bool) Profile {
	out := p.Clone()
	if wasLike {
		out.apply(f, -likeMultiplier)
		out.Liked = remove(out.Liked, f.ItemID)
	} else {
		out.apply(f, -nopeMultiplier)
		out.Disliked = remove(out.Disliked, f.ItemID)
	}
	if out.Interactions > 0 {
		out.Interactions--
	}
	return out
}

func (p *Profile) apply(f Features, m float64) {
	for _, t := range f.Tags {
		adjust(p.TagWeights, t, m)
	}
	adjust(p.BreedWeights, f.Breed, m)
	adjust(p.SizeWeights, f.Size, classFactor*m)
	adjust(p.EnergyWeights, f.Energy, classFactor*m)
}

// adjust adds delta to weights[key], dropping the key when it returns to zero.
func adjust(weights map[string]float64, key string, delta float64) {
	if key == "" {
		return
	}
	w := weights[key] + delta
	if w == 0 {
		delete(weights, key)
		return
	}
	weights[key] = w
}

func appendUnique(ids []string, id string) []string {
	if id == "" || slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
