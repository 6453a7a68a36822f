/*
Package heuristics extracts factual and behavioral attributes from an item
without calling any external service.

Factual tags (species, age bucket, size, color) come from structured fields.
Behavioral tags come only from an authentic, staff-written description and are
never inferred from breed: a Labrador with an empty description gets no
personality tags.
*/
package heuristics

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// Result is the output of Analyze.
type Result struct {
	Tags        []string        `json:"tags"`
	EnergyLevel pet.Energy      `json:"energyLevel"`
	SizeClass   pet.Size        `json:"sizeClass,omitempty"`
	AgeCategory pet.AgeCategory `json:"ageCategory"`
}

// Analyze derives tags, energy, size and age category from item.
func Analyze(item pet.Item) Result {
	age := AgeCategory(item.Age)
	size := SizeClass(item)

	tags := newTagSet()
	if item.Species != "" {
		tags.add(string(item.Species))
	}
	tags.add(string(age))
	if size != "" {
		tags.add(string(size))
	}
	for _, c := range colorTags(item.Color) {
		tags.add(c)
	}
	if item.Compat.Kids == pet.Yes {
		tags.add(TagGoodWithKids)
	}
	if item.Compat.Dogs == pet.Yes {
		tags.add(TagGoodWithDogs)
	}
	if item.Compat.Cats == pet.Yes {
		tags.add(TagGoodWithCats)
	}
	if item.HasAuthenticDescription() {
		for _, trait := range Traits(item.Description) {
			tags.add(trait)
		}
	}

	return Result{
		Tags:        tags.list(),
		EnergyLevel: Energy(tags.list(), age),
		SizeClass:   size,
		AgeCategory: age,
	}
}

var leadingInt = regexp.MustCompile(`^\s*(\d+)`)

// AgeCategory parses free-text age. Durations in months or weeks are Baby;
// otherwise the leading integer is read as years.
func AgeCategory(age string) pet.AgeCategory {
	s := strings.ToLower(strings.TrimSpace(age))

	switch s {
	case "baby", "puppy", "kitten":
		return pet.AgeBaby
	case "young":
		return pet.AgeYoung
	case "adult":
		return pet.AgeAdult
	case "senior":
		return pet.AgeSenior
	}

	if strings.Contains(s, "month") || strings.Contains(s, "week") {
		return pet.AgeBaby
	}

	m := leadingInt.FindStringSubmatch(s)
	if m == nil {
		return pet.AgeAdult
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return pet.AgeAdult
	}

	switch {
	case years < 2:
		return pet.AgeYoung
	case years >= 8:
		return pet.AgeSenior
	default:
		return pet.AgeAdult
	}
}

// SizeClass returns the explicit size when present, else a size inferred from
// description keywords, else a size inferred from breed names at the extremes.
// It returns "" when nothing applies.
func SizeClass(item pet.Item) pet.Size {
	if item.Size != "" {
		return item.Size
	}

	if item.HasAuthenticDescription() {
		if s := matchSize(item.Description, descriptionSizes); s != "" {
			return s
		}
	}

	breed := strings.ToLower(item.Breed)
	for _, b := range tinyBreeds {
		if strings.Contains(breed, b) {
			return pet.SizeSmall
		}
	}
	for _, b := range giantBreeds {
		if strings.Contains(breed, b) {
			return pet.SizeExtraLarge
		}
	}

	return ""
}

func matchSize(text string, rules []sizeRule) pet.Size {
	for _, r := range rules {
		if r.re.MatchString(text) {
			return r.size
		}
	}
	return ""
}

// Traits returns the behavioral tags found in text, in dictionary order.
func Traits(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	tags := newTagSet()
	for _, rule := range traitRules {
		if rule.re.MatchString(text) {
			for _, t := range rule.tags {
				tags.add(t)
			}
		}
	}
	return tags.list()
}

// Energy derives the energy level from tags: any high-energy tag wins, then
// any calm tag or a senior age, else Moderate.
func Energy(tags []string, age pet.AgeCategory) pet.Energy {
	high, low := false, age == pet.AgeSenior
	for _, t := range tags {
		if highEnergyTags[t] {
			high = true
		}
		if lowEnergyTags[t] {
			low = true
		}
	}
	switch {
	case high:
		return pet.EnergyHigh
	case low:
		return pet.EnergyLow
	default:
		return pet.EnergyModerate
	}
}

func colorTags(color string) []string {
	c := strings.TrimSpace(color)
	if c == "" {
		return nil
	}
	tags := newTagSet()
	for _, r := range colorRules {
		if r.re.MatchString(c) {
			tags.add(r.tag)
		}
	}
	return tags.list()
}

// tagSet preserves insertion order and drops duplicates.
type tagSet struct {
	seen  map[string]bool
	order []string
}

func newTagSet() *tagSet {
	return &tagSet{seen: make(map[string]bool)}
}

func (s *tagSet) add(tag string) {
	if tag == "" || s.seen[tag] {
		return
	}
	s.seen[tag] = true
	s.order = append(s.order, tag)
}

func (s *tagSet) list() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
