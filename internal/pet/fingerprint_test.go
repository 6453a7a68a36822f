package pet

import "testing"

func baseItem() Item {
	return Item{
		ID:          "sl-1",
		Name:        "Bruno",
		Species:     SpeciesDog,
		Breed:       "Labrador",
		Age:         "3 years",
		Size:        SizeLarge,
		Color:       "Black",
		Description: "Bruno loves to run and hike all day",
		Images:      []string{"https://img/1.jpg", "https://img/2.jpg"},
	}
}

func TestFingerprint_Stable(t *testing.T) {
	item := baseItem()

	fp1 := Fingerprint(item)
	fp2 := Fingerprint(item)

	if fp1 != fp2 {
		t.Error("Fingerprint produced inconsistent results")
	}
	if len(fp1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(fp1))
	}
}

func TestFingerprint_IgnoresIrrelevantFields(t *testing.T) {
	a := baseItem()
	b := baseItem()
	b.ID = "pf-99"
	b.Name = "Other Name"
	b.Source = "petfinder"
	b.Compat.Kids = Yes
	b.Images = []string{"https://img/1.jpg"} // same primary image

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("items with identical relevant fields should share a fingerprint")
	}
}

func TestFingerprint_NormalizesCaseAndWhitespace(t *testing.T) {
	a := baseItem()
	b := baseItem()
	b.Breed = "  labrador "
	b.Color = "BLACK"

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("breed/color case and padding should not change the fingerprint")
	}
}

func TestFingerprint_ChangesWithRelevantFields(t *testing.T) {
	base := Fingerprint(baseItem())

	mutations := map[string]func(*Item){
		"breed":       func(i *Item) { i.Breed = "Poodle" },
		"age":         func(i *Item) { i.Age = "4 years" },
		"description": func(i *Item) { i.Description = "Quiet lap dog" },
		"size":        func(i *Item) { i.Size = SizeSmall },
		"color":       func(i *Item) { i.Color = "Yellow" },
		"image":       func(i *Item) { i.Images = []string{"https://img/other.jpg"} },
	}

	for name, mutate := range mutations {
		item := baseItem()
		mutate(&item)
		if Fingerprint(item) == base {
			t.Errorf("changing %s should change the fingerprint", name)
		}
	}
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	a := Item{Breed: "ab", Age: "c"}
	b := Item{Breed: "a", Age: "bc"}

	if Fingerprint(a) == Fingerprint(b) {
		t.Error("moving characters across fields must change the fingerprint")
	}
}

func TestParseSize(t *testing.T) {
	cases := map[string]Size{
		"small":  SizeSmall,
		"Medium": SizeMedium,
		"L":      SizeLarge,
		"XL":     SizeExtraLarge,
		"huge?":  "",
	}
	for in, want := range cases {
		if got := ParseSize(in); got != want {
			t.Errorf("ParseSize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHasAuthenticDescription(t *testing.T) {
	item := baseItem()
	if !item.HasAuthenticDescription() {
		t.Error("staff-written description should be authentic")
	}

	item.IsSyntheticDescription = true
	if item.HasAuthenticDescription() {
		t.Error("synthetic description should not be authentic")
	}

	item.IsSyntheticDescription = false
	item.Description = "   "
	if item.HasAuthenticDescription() {
		t.Error("blank description should not be authentic")
	}
}
