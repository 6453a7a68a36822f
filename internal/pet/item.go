/*
Package pet defines the canonical adoptable-pet record consumed by the
enrichment core and the content fingerprint derived from it.

Items are produced by upstream adapters (see package source) and are treated
as read-only everywhere else.
*/
package pet

import "strings"

// Species is the animal kind.
type Species string

const (
	SpeciesDog   Species = "Dog"
	SpeciesCat   Species = "Cat"
	SpeciesOther Species = "Other"
)

// AgeCategory is the coarse age bucket.
type AgeCategory string

const (
	AgeBaby   AgeCategory = "Baby"
	AgeYoung  AgeCategory = "Young"
	AgeAdult  AgeCategory = "Adult"
	AgeSenior AgeCategory = "Senior"
)

// Size is the size class. The zero value means unknown.
type Size string

const (
	SizeSmall      Size = "Small"
	SizeMedium     Size = "Medium"
	SizeLarge      Size = "Large"
	SizeExtraLarge Size = "Extra Large"
)

// Energy is the energy class. The zero value means unknown.
type Energy string

const (
	EnergyLow      Energy = "Low"
	EnergyModerate Energy = "Moderate"
	EnergyHigh     Energy = "High"
)

// Tri is a tri-state compatibility flag.
type Tri int

const (
	Unknown Tri = iota
	Yes
	No
)

// String returns "unknown", "yes" or "no".
func (t Tri) String() string {
	switch t {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

// TriFromBool converts a nullable boolean into a Tri.
func TriFromBool(b *bool) Tri {
	if b == nil {
		return Unknown
	}
	if *b {
		return Yes
	}
	return No
}

// Compatibility records whether the animal is known to get along with others.
type Compatibility struct {
	Kids Tri `json:"kids"`
	Dogs Tri `json:"dogs"`
	Cats Tri `json:"cats"`
}

// Item is a normalized adoptable-pet record.
type Item struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Source  string  `json:"source"`
	Species Species `json:"species"`
	Breed   string  `json:"breed"`

	// Age is free text as published by the shelter ("3 years", "8 weeks", "Senior").
	Age    string `json:"age"`
	Size   Size   `json:"size,omitempty"`
	Energy Energy `json:"energy,omitempty"`
	Color  string `json:"color,omitempty"`

	Description string `json:"description"`

	// IsSyntheticDescription is true when the description was machine generated
	// rather than written by shelter staff.
	IsSyntheticDescription bool `json:"isSyntheticDescription"`

	Compat Compatibility `json:"compat"`
	Images []string      `json:"images,omitempty"`
}

// PrimaryImage returns the first image reference or "".
func (i Item) PrimaryImage() string {
	if len(i.Images) == 0 {
		return ""
	}
	return i.Images[0]
}

// HasAuthenticDescription reports whether the description was written by a human
// and has content worth reading.
func (i Item) HasAuthenticDescription() bool {
	return !i.IsSyntheticDescription && strings.TrimSpace(i.Description) != ""
}

// DisplayName returns the name or a generic fallback.
func (i Item) DisplayName() string {
	if n := strings.TrimSpace(i.Name); n != "" {
		return n
	}
	return "This pet"
}

// ParseSize maps loose upstream spellings onto a Size.
func ParseSize(s string) Size {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "small", "s", "toy", "tiny":
		return SizeSmall
	case "medium", "m", "med":
		return SizeMedium
	case "large", "l":
		return SizeLarge
	case "extra large", "extra-large", "xl", "x-large", "giant":
		return SizeExtraLarge
	default:
		return ""
	}
}

// ParseSpecies maps loose upstream spellings onto a Species.
func ParseSpecies(s string) Species {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dog", "dogs", "canine", "puppy":
		return SpeciesDog
	case "cat", "cats", "feline", "kitten":
		return SpeciesCat
	case "":
		return ""
	default:
		return SpeciesOther
	}
}
