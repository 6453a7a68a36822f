package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// Source tags.
const (
	TagShelterluv = "shelterluv"
	TagPetfinder  = "petfinder"
	TagOpenData   = "opendata"
)

// ShelterluvAnimal is the Shelterluv animal record.
type ShelterluvAnimal struct {
	InternalID  string   `json:"Internal-ID"`
	Name        string   `json:"Name"`
	Type        string   `json:"Type"`
	Breed       string   `json:"Breed"`
	AgeMonths   int      `json:"Age"`
	Size        string   `json:"Size"`
	Color       string   `json:"Color"`
	Description string   `json:"Description"`
	Photos      []string `json:"Photos"`
	Attributes  []struct {
		AttributeName string `json:"AttributeName"`
	} `json:"Attributes"`
}

// FromShelterluv maps a Shelterluv record. Age is published in months and
// size carries a weight suffix ("Medium (26-60 lbs)").
func FromShelterluv(a ShelterluvAnimal) pet.Item {
	size := a.Size
	if i := strings.IndexByte(size, '('); i >= 0 {
		size = size[:i]
	}

	item := pet.Item{
		ID:          "sl-" + a.InternalID,
		Name:        strings.TrimSpace(a.Name),
		Source:      TagShelterluv,
		Species:     pet.ParseSpecies(a.Type),
		Breed:       strings.TrimSpace(a.Breed),
		Age:         monthsToAge(a.AgeMonths),
		Size:        pet.ParseSize(size),
		Color:       strings.TrimSpace(a.Color),
		Description: strings.TrimSpace(a.Description),
		Images:      nonEmpty(a.Photos),
	}

	for _, attr := range a.Attributes {
		switch strings.ToLower(strings.TrimSpace(attr.AttributeName)) {
		case "good with kids", "good with children":
			item.Compat.Kids = pet.Yes
		case "no kids", "not good with kids":
			item.Compat.Kids = pet.No
		case "good with dogs":
			item.Compat.Dogs = pet.Yes
		case "no dogs", "not good with dogs", "only dog":
			item.Compat.Dogs = pet.No
		case "good with cats":
			item.Compat.Cats = pet.Yes
		case "no cats", "not good with cats":
			item.Compat.Cats = pet.No
		}
	}

	return item
}

func monthsToAge(months int) string {
	switch {
	case months <= 0:
		return ""
	case months < 12:
		return fmt.Sprintf("%d months", months)
	case months < 24:
		return "1 year"
	default:
		return fmt.Sprintf("%d years", months/12)
	}
}

// PetfinderAnimal is the Petfinder v2 animal record.
type PetfinderAnimal struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Species string `json:"species"`
	Breeds  struct {
		Primary   string `json:"primary"`
		Secondary string `json:"secondary"`
		Mixed     bool   `json:"mixed"`
	} `json:"breeds"`
	Age    string `json:"age"`
	Size   string `json:"size"`
	Colors struct {
		Primary   string `json:"primary"`
		Secondary string `json:"secondary"`
	} `json:"colors"`
	Description string `json:"description"`
	Environment struct {
		Children *bool `json:"children"`
		Dogs     *bool `json:"dogs"`
		Cats     *bool `json:"cats"`
	} `json:"environment"`
	Photos []struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
		Full   string `json:"full"`
	} `json:"photos"`
}

// FromPetfinder maps a Petfinder record. Age is an enum word.
func FromPetfinder(a PetfinderAnimal) pet.Item {
	breed := strings.TrimSpace(a.Breeds.Primary)
	if a.Breeds.Secondary != "" {
		breed += " / " + strings.TrimSpace(a.Breeds.Secondary)
	} else if a.Breeds.Mixed && breed != "" {
		breed += " Mix"
	}

	color := strings.TrimSpace(a.Colors.Primary)
	if a.Colors.Secondary != "" {
		color += " and " + strings.TrimSpace(a.Colors.Secondary)
	}

	var images []string
	for _, p := range a.Photos {
		for _, u := range []string{p.Full, p.Large, p.Medium, p.Small} {
			if u != "" {
				images = append(images, u)
				break
			}
		}
	}

	return pet.Item{
		ID:          "pf-" + strconv.Itoa(a.ID),
		Name:        strings.TrimSpace(a.Name),
		Source:      TagPetfinder,
		Species:     pet.ParseSpecies(a.Species),
		Breed:       breed,
		Age:         strings.TrimSpace(a.Age),
		Size:        pet.ParseSize(a.Size),
		Color:       color,
		Description: strings.TrimSpace(a.Description),
		Compat: pet.Compatibility{
			Kids: pet.TriFromBool(a.Environment.Children),
			Dogs: pet.TriFromBool(a.Environment.Dogs),
			Cats: pet.TriFromBool(a.Environment.Cats),
		},
		Images: images,
	}
}

// OpenDataAnimal is a municipal open-data intake record. These feeds carry no
// staff notes.
type OpenDataAnimal struct {
	AnimalID   string `json:"animal_id"`
	Name       string `json:"name"`
	AnimalType string `json:"animal_type"`
	Breed      string `json:"breed"`
	Age        string `json:"age_upon_intake"`
	Color      string `json:"color"`
	ImageURL   string `json:"image_url"`
}

// FromOpenData maps an open-data record. The description is generated from
// the structured fields and flagged synthetic.
func FromOpenData(a OpenDataAnimal) pet.Item {
	name := strings.TrimPrefix(strings.TrimSpace(a.Name), "*")

	item := pet.Item{
		ID:      "od-" + strings.TrimSpace(a.AnimalID),
		Name:    name,
		Source:  TagOpenData,
		Species: pet.ParseSpecies(a.AnimalType),
		Breed:   strings.TrimSpace(a.Breed),
		Age:     strings.TrimSpace(a.Age),
		Color:   strings.ReplaceAll(strings.TrimSpace(a.Color), "/", " and "),
		Images:  nonEmpty([]string{a.ImageURL}),
	}

	parts := []string{}
	if item.Color != "" {
		parts = append(parts, item.Color)
	}
	if item.Breed != "" {
		parts = append(parts, item.Breed)
	}
	if len(parts) > 0 {
		item.Description = strings.Join(parts, " ") + ", " + item.Age + "."
		item.IsSyntheticDescription = true
	}

	return item
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
