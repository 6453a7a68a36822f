package source

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/moisesjgomez/open-pet-platform/internal/logging"
	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// Record is a tagged upstream record: {"kind": "petfinder", "data": {...}}.
type Record struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Adapt decodes Data according to Kind and maps it to an Item.
func (r Record) Adapt() (pet.Item, error) {
	switch r.Kind {
	case TagShelterluv:
		var a ShelterluvAnimal
		if err := json.Unmarshal(r.Data, &a); err != nil {
			return pet.Item{}, fmt.Errorf("invalid shelterluv record: %w", err)
		}
		if a.InternalID == "" {
			return pet.Item{}, fmt.Errorf("shelterluv record missing Internal-ID")
		}
		return FromShelterluv(a), nil

	case TagPetfinder:
		var a PetfinderAnimal
		if err := json.Unmarshal(r.Data, &a); err != nil {
			return pet.Item{}, fmt.Errorf("invalid petfinder record: %w", err)
		}
		if a.ID == 0 {
			return pet.Item{}, fmt.Errorf("petfinder record missing id")
		}
		return FromPetfinder(a), nil

	case TagOpenData:
		var a OpenDataAnimal
		if err := json.Unmarshal(r.Data, &a); err != nil {
			return pet.Item{}, fmt.Errorf("invalid open-data record: %w", err)
		}
		if a.AnimalID == "" {
			return pet.Item{}, fmt.Errorf("open-data record missing animal_id")
		}
		return FromOpenData(a), nil

	default:
		return pet.Item{}, fmt.Errorf("unknown record kind %q", r.Kind)
	}
}

// LoadFile reads a JSON array of tagged records into a Memory source.
// Records that fail to adapt are skipped with a warning.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse items file: %w", err)
	}

	m := NewMemory()
	skipped := 0
	for i, r := range records {
		item, err := r.Adapt()
		if err != nil {
			skipped++
			logging.Warn().Err(err).Int("index", i).Str("path", path).Msg("skipping record")
			continue
		}
		m.Put(item)
	}

	logging.Debug().Int("loaded", len(records)-skipped).Int("skipped", skipped).Str("path", path).Msg("loaded items")
	return m, nil
}
