package heuristics

import (
	"regexp"

	"github.com/moisesjgomez/open-pet-platform/internal/pet"
)

// Compatibility tags.
const (
	TagGoodWithKids = "Good with Kids"
	TagGoodWithDogs = "Good with Dogs"
	TagGoodWithCats = "Good with Cats"
)

// Behavioral tags.
const (
	TagActive       = "Active"
	TagAdventurous  = "Adventurous"
	TagPlayful      = "Playful"
	TagCalm         = "Calm"
	TagCuddly       = "Cuddly"
	TagCouchPotato  = "Couch Potato"
	TagAffectionate = "Affectionate"
	TagFriendly     = "Friendly"
	TagShy          = "Shy"
	TagSmart        = "Smart"
	TagTrained      = "Trained"
	TagHouseTrained = "House Trained"
	TagIndependent  = "Independent"
	TagVocal        = "Vocal"
	TagGentle       = "Gentle"
	TagLoyal        = "Loyal"
)

var highEnergyTags = map[string]bool{
	TagActive:      true,
	TagAdventurous: true,
	TagPlayful:     true,
}

var lowEnergyTags = map[string]bool{
	TagCalm:        true,
	TagCouchPotato: true,
}

type traitRule struct {
	re   *regexp.Regexp
	tags []string
}

// words builds a case-insensitive, word-boundary alternation.
func words(terms string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + terms + `)\b`)
}

var traitRules = []traitRule{
	{words(`runs?|running|hikes?|hiking|jog|jogging|fetch|exercise|energetic|athletic|zoomies`), []string{TagActive, TagAdventurous}},
	{words(`active|high[- ]energy|lots of energy|on the go`), []string{TagActive}},
	{words(`adventures?|outdoors|explore|exploring`), []string{TagAdventurous}},
	{words(`play|plays|playful|toys?|games?`), []string{TagPlayful}},
	{words(`calm|mellow|laid[- ]back|relaxed|easy[- ]going|quiet|low[- ]key`), []string{TagCalm}},
	{words(`couch|naps?|napping|lounge|lounging|lazy`), []string{TagCouchPotato, TagCalm}},
	{words(`cuddles?|cuddly|snuggles?|snuggly|lap (?:dog|cat)`), []string{TagCuddly}},
	{words(`affectionate|loving|sweet|kisses`), []string{TagAffectionate}},
	{words(`friendly|social|outgoing|loves people`), []string{TagFriendly}},
	{words(`shy|timid|nervous|fearful|reserved`), []string{TagShy}},
	{words(`smart|intelligent|clever|quick learner`), []string{TagSmart}},
	{words(`knows (?:sit|commands)|obedience|leash[- ]trained|crate[- ]trained`), []string{TagTrained}},
	{words(`house[- ]?trained|potty[- ]trained|housebroken|litter[- ]trained`), []string{TagHouseTrained}},
	{words(`independent|aloof`), []string{TagIndependent}},
	{words(`vocal|talkative|chatty|barks`), []string{TagVocal}},
	{words(`gentle|soft[- ]mouthed|tender`), []string{TagGentle}},
	{words(`loyal|devoted|velcro`), []string{TagLoyal}},
}

type sizeRule struct {
	re   *regexp.Regexp
	size pet.Size
}

var descriptionSizes = []sizeRule{
	{words(`extra[- ]large|giant|huge|massive`), pet.SizeExtraLarge},
	{words(`large|big (?:dog|boy|girl|guy)`), pet.SizeLarge},
	{words(`medium[- ]sized|medium`), pet.SizeMedium},
	{words(`small|tiny|petite|pint[- ]sized`), pet.SizeSmall},
}

// Only breeds whose size is unambiguous. Never used for temperament.
var tinyBreeds = []string{
	"chihuahua", "yorkshire", "yorkie", "pomeranian", "maltese", "toy poodle",
	"papillon", "shih tzu", "miniature pinscher", "pekingese",
}

var giantBreeds = []string{
	"great dane", "mastiff", "saint bernard", "st. bernard", "newfoundland",
	"irish wolfhound", "great pyrenees", "leonberger", "bernese",
}

type colorRule struct {
	re  *regexp.Regexp
	tag string
}

var colorRules = []colorRule{
	{words(`black`), "Black"},
	{words(`white|cream`), "White"},
	{words(`brown|chocolate|liver`), "Brown"},
	{words(`tan|fawn|yellow|golden|blonde`), "Golden"},
	{words(`gr[ae]y|blue|silver`), "Gray"},
	{words(`orange|red|ginger`), "Orange"},
	{words(`brindle`), "Brindle"},
	{words(`tabby`), "Tabby"},
	{words(`calico`), "Calico"},
	{words(`tortoiseshell|tortie`), "Tortoiseshell"},
	{words(`tuxedo`), "Tuxedo"},
	{words(`merle`), "Merle"},
	{words(`spotted|dalmatian`), "Spotted"},
	{words(`tricolor|tri[- ]color`), "Tricolor"},
}
