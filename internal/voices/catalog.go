// Package voices holds the curated voice catalog and the language map for
// the synthesis provider. Voice identifiers are opaque strings recognized
// by the upstream API; everything a transport needs to validate a request
// against the catalog lives here.
package voices

import "strings"

// Gender of a catalog voice.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// Category groups voices by delivery style for the picker UI.
type Category string

const (
	CategoryMotivational Category = "motivational"
	CategoryStorytelling Category = "storytelling"
	CategorySerious      Category = "serious"
)

// Voice describes one provider voice.
type Voice struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Gender    Gender   `json:"gender"`
	Category  Category `json:"category"`
	Languages []string `json:"supportedLanguages"`
}

// DefaultLanguageCode is used when a request names no known language.
const DefaultLanguageCode = "en-IN"

// catalog is the curated bulbul:v3 voice set.
var catalog = []Voice{
	// Motivational and energetic.
	{ID: "priya", Name: "Priya", Gender: GenderFemale, Category: CategoryMotivational,
		Languages: []string{"hindi", "hinglish", "english"}},
	{ID: "rohan", Name: "Rohan", Gender: GenderMale, Category: CategoryMotivational,
		Languages: []string{"hindi", "hinglish", "english"}},
	{ID: "aditya", Name: "Aditya", Gender: GenderMale, Category: CategoryMotivational,
		Languages: []string{"hindi", "hinglish", "english", "bengali", "gujarati"}},

	// Storytelling and engaging.
	{ID: "ritu", Name: "Ritu", Gender: GenderFemale, Category: CategoryStorytelling,
		Languages: []string{"hindi", "hinglish", "english", "bengali"}},
	{ID: "simran", Name: "Simran", Gender: GenderFemale, Category: CategoryStorytelling,
		Languages: []string{"hindi", "hinglish", "english", "punjabi"}},
	{ID: "kabir", Name: "Kabir", Gender: GenderMale, Category: CategoryStorytelling,
		Languages: []string{"hindi", "hinglish", "english", "odia"}},

	// Serious and conversational.
	{ID: "neha", Name: "Neha", Gender: GenderFemale, Category: CategorySerious,
		Languages: []string{"hindi", "hinglish", "english", "tamil"}},
	{ID: "dev", Name: "Dev", Gender: GenderMale, Category: CategorySerious,
		Languages: []string{"hindi", "hinglish", "english", "telugu"}},
	{ID: "ashutosh", Name: "Ashutosh", Gender: GenderMale, Category: CategorySerious,
		Languages: []string{"hindi", "hinglish", "english", "malayalam"}},

	// Smooth English focus.
	{ID: "sophia", Name: "Sophia", Gender: GenderFemale, Category: CategoryStorytelling,
		Languages: []string{"english", "hindi", "hinglish"}},
	{ID: "sunny", Name: "Sunny", Gender: GenderMale, Category: CategoryMotivational,
		Languages: []string{"english", "hindi", "hinglish"}},
}

// languageCodes maps catalog language names to the provider's BCP-47-style
// target codes. Hinglish is synthesized under the Hindi locale.
var languageCodes = map[string]string{
	"english":   "en-IN",
	"hindi":     "hi-IN",
	"hinglish":  "hi-IN",
	"bengali":   "bn-IN",
	"gujarati":  "gu-IN",
	"kannada":   "kn-IN",
	"malayalam": "ml-IN",
	"marathi":   "mr-IN",
	"odia":      "od-IN",
	"punjabi":   "pa-IN",
	"tamil":     "ta-IN",
	"telugu":    "te-IN",
}

// All returns the full catalog in display order.
func All() []Voice {
	out := make([]Voice, len(catalog))
	copy(out, catalog)

	return out
}

// Find looks up a voice by identifier.
func Find(id string) (Voice, bool) {
	for _, v := range catalog {
		if v.ID == id {
			return v, true
		}
	}

	return Voice{}, false
}

// Valid reports whether id names a catalog voice.
func Valid(id string) bool {
	_, ok := Find(id)

	return ok
}

// LanguageCode resolves a catalog language name (case-insensitive) to the
// provider's locale code, defaulting to en-IN for unknown names.
func LanguageCode(language string) string {
	if code, ok := languageCodes[strings.ToLower(language)]; ok {
		return code
	}

	return DefaultLanguageCode
}

// KnownLanguage reports whether language is in the supported set.
func KnownLanguage(language string) bool {
	_, ok := languageCodes[strings.ToLower(language)]

	return ok
}
