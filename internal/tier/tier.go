// Package tier defines the subscription plans and the per-plan limits
// enforced before a voiceover job is accepted.
package tier

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Plan identifiers as carried on requests.
const (
	Free    = "free"
	Creator = "creator"
	Pro     = "pro"
)

// Unlimited marks a plan with no monthly generation cap.
const Unlimited = -1

var (
	// ErrScriptEmpty is returned when a script is blank after trimming.
	ErrScriptEmpty = errors.New("script is empty")
	// ErrScriptTooLong is returned when a script exceeds the plan's
	// character allowance.
	ErrScriptTooLong = errors.New("script exceeds plan character limit")
	// ErrLanguageNotAllowed is returned when a plan does not include the
	// requested language.
	ErrLanguageNotAllowed = errors.New("language not available on this plan")
)

// Config holds the enforcement limits for one plan.
type Config struct {
	Name string
	// MonthlyGenerations caps completed generations per calendar month.
	// Unlimited disables the cap.
	MonthlyGenerations int
	// MaxScriptChars caps script length in runes.
	MaxScriptChars int
	// Languages restricts the selectable languages. Empty means all
	// catalog languages are available.
	Languages []string
}

var plans = map[string]Config{
	Free: {
		Name:               Free,
		MonthlyGenerations: 5,
		MaxScriptChars:     500,
		Languages:          []string{"english", "hindi", "hinglish"},
	},
	Creator: {
		Name:               Creator,
		MonthlyGenerations: 60,
		MaxScriptChars:     2000,
	},
	Pro: {
		Name:               Pro,
		MonthlyGenerations: Unlimited,
		MaxScriptChars:     5000,
	},
}

// ForTier returns the plan configuration for name, falling back to the
// free plan for unknown names.
func ForTier(name string) Config {
	if cfg, ok := plans[strings.ToLower(name)]; ok {
		return cfg
	}

	return plans[Free]
}

// ValidateScript checks a script against the plan's character allowance.
func (c Config) ValidateScript(script string) error {
	trimmed := strings.TrimSpace(script)
	if trimmed == "" {
		return ErrScriptEmpty
	}

	if n := utf8.RuneCountInString(trimmed); n > c.MaxScriptChars {
		return fmt.Errorf("%w: %d characters, limit %d", ErrScriptTooLong, n, c.MaxScriptChars)
	}

	return nil
}

// LanguageAllowed reports whether the plan includes language.
func (c Config) LanguageAllowed(language string) bool {
	if len(c.Languages) == 0 {
		return true
	}

	want := strings.ToLower(language)
	for _, lang := range c.Languages {
		if lang == want {
			return true
		}
	}

	return false
}
