/*
Package enrich produces enriched content for a single item, escalating from
free heuristics to paid text generation and image analysis only when the
caller asks for it and nothing reusable exists.

Reuse happens at three levels, cheapest first:
  - content already stored for the item with an unchanged fingerprint
  - content stored for another item with the same fingerprint
  - cached bio or image results keyed by fingerprint

Paid calls go through the budget governor. A denied or failed call leaves the
result at the highest tier already reached; it is never an error.
*/
package enrich

import (
	"fmt"
	"strings"
	"time"

	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// Tier is the enrichment depth. Tiers are strictly ordered.
type Tier int

const (
	TierHeuristic Tier = iota
	TierBasic
	TierFull
)

var tierNames = [...]string{"heuristic", "basic", "full"}

func (t Tier) String() string {
	if t < TierHeuristic || t > TierFull {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier parses "heuristic", "basic" or "full".
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if strings.EqualFold(s, name) {
			return Tier(i), nil
		}
	}
	return TierHeuristic, fmt.Errorf("unknown tier %q", s)
}

// ImageResult is the outcome of image analysis.
type ImageResult struct {
	BreedGuess     string   `json:"breedGuess,omitempty"`
	Color          string   `json:"color,omitempty"`
	ObservedTraits []string `json:"observedTraits,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// Content is the enriched view of an item.
type Content struct {
	ItemID      string          `json:"itemId"`
	Tags        []string        `json:"tags"`
	EnergyLevel pet.Energy      `json:"energyLevel"`
	SizeClass   pet.Size        `json:"sizeClass,omitempty"`
	AgeCategory pet.AgeCategory `json:"ageCategory"`

	Bio     string   `json:"bio"`
	Summary string   `json:"summary,omitempty"`
	AITags  []string `json:"aiTags,omitempty"`

	ImageAnalysis *ImageResult `json:"imageAnalysis,omitempty"`

	Tier        Tier      `json:"enrichmentTier"`
	TokensUsed  int       `json:"tokensUsed"`
	Fingerprint string    `json:"fingerprint"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AllTags returns heuristic tags followed by AI tags, deduplicated.
func (c Content) AllTags() []string {
	seen := make(map[string]bool, len(c.Tags)+len(c.AITags))
	out := make([]string, 0, len(c.Tags)+len(c.AITags))
	for _, group := range [][]string{c.Tags, c.AITags} {
		for _, t := range group {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Merge fills the item's unknown size and energy from enriched content.
func Merge(item pet.Item, c Content) pet.Item {
	if item.Size == "" {
		item.Size = c.SizeClass
	}
	if item.Energy == "" {
		item.Energy = c.EnergyLevel
	}
	return item
}
