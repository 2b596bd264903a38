package voices_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxly/voiceover-service/internal/voices"
)

func TestCatalogWellFormed(t *testing.T) {
	t.Parallel()

	all := voices.All()
	require.Len(t, all, 11)

	seen := make(map[string]bool)
	for _, v := range all {
		assert.NotEmpty(t, v.ID)
		assert.NotEmpty(t, v.Name)
		assert.NotEmpty(t, v.Languages)
		assert.False(t, seen[v.ID], "duplicate voice id %q", v.ID)
		seen[v.ID] = true

		for _, lang := range v.Languages {
			assert.True(t, voices.KnownLanguage(lang),
				"voice %q lists unknown language %q", v.ID, lang)
		}
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	v, ok := voices.Find("priya")
	require.True(t, ok)
	assert.Equal(t, "Priya", v.Name)
	assert.Equal(t, voices.GenderFemale, v.Gender)

	_, ok = voices.Find("nonexistent")
	assert.False(t, ok)

	assert.True(t, voices.Valid("kabir"))
	assert.False(t, voices.Valid(""))
}

func TestAllReturnsCopy(t *testing.T) {
	t.Parallel()

	first := voices.All()
	first[0].ID = "mutated"

	assert.Equal(t, "priya", voices.All()[0].ID)
}

func TestLanguageCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "en-IN", voices.LanguageCode("english"))
	assert.Equal(t, "hi-IN", voices.LanguageCode("hindi"))
	assert.Equal(t, "hi-IN", voices.LanguageCode("hinglish"))
	assert.Equal(t, "ta-IN", voices.LanguageCode("Tamil"))
	assert.Equal(t, "od-IN", voices.LanguageCode("odia"))

	// Unknown languages fall back to the default locale.
	assert.Equal(t, voices.DefaultLanguageCode, voices.LanguageCode("klingon"))
	assert.Equal(t, voices.DefaultLanguageCode, voices.LanguageCode(""))
}
