package tier_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxly/voiceover-service/internal/tier"
)

func TestForTier(t *testing.T) {
	t.Parallel()

	free := tier.ForTier("free")
	assert.Equal(t, 5, free.MonthlyGenerations)
	assert.Equal(t, 500, free.MaxScriptChars)

	creator := tier.ForTier("creator")
	assert.Equal(t, 60, creator.MonthlyGenerations)
	assert.Equal(t, 2000, creator.MaxScriptChars)

	pro := tier.ForTier("Pro")
	assert.Equal(t, tier.Unlimited, pro.MonthlyGenerations)
	assert.Equal(t, 5000, pro.MaxScriptChars)

	// Unknown plans degrade to the free limits.
	assert.Equal(t, free, tier.ForTier("enterprise"))
	assert.Equal(t, free, tier.ForTier(""))
}

func TestValidateScript(t *testing.T) {
	t.Parallel()

	free := tier.ForTier("free")

	require.NoError(t, free.ValidateScript("a short script"))
	require.ErrorIs(t, free.ValidateScript("   \n\t "), tier.ErrScriptEmpty)

	long := strings.Repeat("x", 501)
	require.ErrorIs(t, free.ValidateScript(long), tier.ErrScriptTooLong)

	// Limits count runes, not bytes.
	devanagari := strings.Repeat("न", 500)
	require.NoError(t, free.ValidateScript(devanagari))
	require.ErrorIs(t, free.ValidateScript(devanagari+"न"), tier.ErrScriptTooLong)
}

func TestLanguageAllowed(t *testing.T) {
	t.Parallel()

	free := tier.ForTier("free")
	assert.True(t, free.LanguageAllowed("english"))
	assert.True(t, free.LanguageAllowed("Hindi"))
	assert.True(t, free.LanguageAllowed("hinglish"))
	assert.False(t, free.LanguageAllowed("tamil"))

	// Paid plans carry no language restriction.
	creator := tier.ForTier("creator")
	assert.True(t, creator.LanguageAllowed("tamil"))
	assert.True(t, creator.LanguageAllowed("bengali"))

	pro := tier.ForTier("pro")
	assert.True(t, pro.LanguageAllowed("tamil"))
	assert.True(t, pro.LanguageAllowed("odia"))
}
