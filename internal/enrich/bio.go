package enrich

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/moisesjgomez/open-pet-platform/internal/heuristics"
	"github.com/moisesjgomez/open-pet-platform/internal/inference"
	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

const bioSystemPrompt = `You write adoption profiles for shelter animals.
Use only the facts provided. If no shelter notes are given, do not invent personality traits.
Respond with a JSON object: {"bio": string, "summary": string, "tags": [string]}.
The bio is at most 80 words; the summary is one sentence; tags are short trait labels found in the notes.`

// textPayload is the structured output of bio generation. It is also the
// value cached under the bio category.
type textPayload struct {
	Bio     string   `json:"bio"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

func (p textPayload) valid() bool {
	return strings.TrimSpace(p.Bio) != ""
}

// bioPrompt renders the facts known about an item.
func bioPrompt(item pet.Item, h heuristics.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Name: %s\n", item.DisplayName())
	if item.Species != "" {
		fmt.Fprintf(&b, "Species: %s\n", item.Species)
	}
	if item.Breed != "" {
		fmt.Fprintf(&b, "Breed: %s\n", item.Breed)
	}
	fmt.Fprintf(&b, "Age: %s (%s)\n", strings.TrimSpace(item.Age), h.AgeCategory)
	if h.SizeClass != "" {
		fmt.Fprintf(&b, "Size: %s\n", h.SizeClass)
	}
	if item.Color != "" {
		fmt.Fprintf(&b, "Color: %s\n", item.Color)
	}
	fmt.Fprintf(&b, "Good with kids: %s, dogs: %s, cats: %s\n", item.Compat.Kids, item.Compat.Dogs, item.Compat.Cats)
	if len(h.Tags) > 0 {
		fmt.Fprintf(&b, "Known tags: %s\n", strings.Join(h.Tags, ", "))
	}

	if item.HasAuthenticDescription() {
		fmt.Fprintf(&b, "Shelter notes: %s\n", strings.TrimSpace(item.Description))
	} else {
		b.WriteString("Shelter notes: none provided\n")
	}

	return b.String()
}

// parseTextPayload decodes the model output.
func parseTextPayload(raw string) (textPayload, error) {
	var p textPayload
	if err := json.Unmarshal([]byte(inference.StripCodeFence(raw)), &p); err != nil {
		return textPayload{}, fmt.Errorf("malformed bio response: %w", err)
	}
	if !p.valid() {
		return textPayload{}, fmt.Errorf("bio response missing bio")
	}
	return p, nil
}

// FallbackBio returns the staff description when it is authentic, otherwise a
// templated message that states only known facts.
func FallbackBio(item pet.Item, h heuristics.Result) string {
	if item.HasAuthenticDescription() {
		return strings.TrimSpace(item.Description)
	}

	kind := strings.TrimSpace(item.Breed)
	if kind == "" {
		kind = strings.ToLower(string(item.Species))
	}
	if kind == "" {
		kind = "pet"
	}

	var desc []string
	if h.AgeCategory != "" {
		desc = append(desc, strings.ToLower(string(h.AgeCategory)))
	}
	if h.SizeClass != "" {
		desc = append(desc, strings.ToLower(string(h.SizeClass)))
	}
	desc = append(desc, kind)

	return fmt.Sprintf(
		"%s is %s %s looking for a home. The shelter hasn't shared notes about their personality yet, so reach out to the staff to learn more.",
		item.DisplayName(), article(desc[0]), strings.Join(desc, " "),
	)
}

func article(word string) string {
	if word == "" {
		return "a"
	}
	switch strings.ToLower(word[:1]) {
	case "a", "e", "i", "o", "u":
		return "an"
	}
	return "a"
}
