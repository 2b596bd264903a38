// Package voiceover_test tests the generation pipeline end to end against a
// scripted synthesizer.
package voiceover_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxly/voiceover-service/internal/audio"
	"github.com/voxly/voiceover-service/internal/core"
	"github.com/voxly/voiceover-service/internal/voiceover"
)

var errSynthDown = errors.New("synthesis service unavailable")

// mockSynthesizer records the chunks it receives and answers each with a
// small valid WAV segment. failAt, when non-zero, fails that call (1-based).
type mockSynthesizer struct {
	calls  []string
	params []core.SynthesisParams
	failAt int
}

func (m *mockSynthesizer) Synthesize(
	_ context.Context,
	input string,
	params core.SynthesisParams,
) ([]byte, error) {
	m.calls = append(m.calls, input)
	m.params = append(m.params, params)

	if m.failAt == len(m.calls) {
		return nil, errSynthDown
	}

	samples := make([]int16, 50+len(m.calls))

	segment, err := audio.EncodePCM16(samples, 24000, 1)
	if err != nil {
		return nil, err
	}

	return segment, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "voiceover-test.log")
	require.NoError(t, err)

	return log
}

func testRequest(script string) core.Request {
	return core.Request{
		Script:       script,
		VoiceID:      "aditya",
		LanguageCode: "hi-IN",
	}
}

func TestGenerateFull_ShortScriptSingleCall(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	gen := voiceover.NewGenerator(synth, 450, "", testLogger(t))

	out, err := gen.GenerateFull(context.Background(), testRequest("a short script"))
	require.NoError(t, err)
	require.Len(t, synth.calls, 1)
	assert.Equal(t, "a short script", synth.calls[0])

	// One chunk means one segment, returned without a stitch pass.
	data, err := audio.SampleData(out)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestGenerateFull_LongScriptSequentialChunks(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	gen := voiceover.NewGenerator(synth, 40, "", testLogger(t))

	script := strings.TrimSpace(strings.Repeat("steady narration words here ", 10))

	out, err := gen.GenerateFull(context.Background(), testRequest(script))
	require.NoError(t, err)
	require.Greater(t, len(synth.calls), 1)

	// Chunks arrive in script order and every call used the same params.
	assert.Equal(t, strings.Fields(script), strings.Fields(strings.Join(synth.calls, " ")))

	for _, p := range synth.params {
		assert.Equal(t, synth.params[0], p)
	}

	// Combined sample data is the ordered concatenation of all segments.
	data, err := audio.SampleData(out)
	require.NoError(t, err)

	total := 0
	for i := range synth.calls {
		total += (50 + i + 1) * 2
	}

	assert.Equal(t, total, len(data))
}

func TestGenerateFull_EmptyScript(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	gen := voiceover.NewGenerator(synth, 450, "", testLogger(t))

	_, err := gen.GenerateFull(context.Background(), testRequest("   \n "))
	require.ErrorIs(t, err, voiceover.ErrEmptyScript)
	assert.Empty(t, synth.calls)
}

func TestGenerateFull_FailFastOnChunkError(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{failAt: 2}
	gen := voiceover.NewGenerator(synth, 40, "", testLogger(t))

	script := strings.TrimSpace(strings.Repeat("enough words to force three chunks ", 4))

	out, err := gen.GenerateFull(context.Background(), testRequest(script))
	require.Error(t, err)
	assert.Nil(t, out)

	// The error names the failing chunk; no calls happen after it.
	var synthErr *voiceover.SynthesisError

	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, 2, synthErr.Chunk)
	assert.Len(t, synth.calls, 2)
	require.ErrorIs(t, err, errSynthDown)
}

func TestGeneratePreview_TruncatesScript(t *testing.T) {
	t.Parallel()

	synth := &mockSynthesizer{}
	gen := voiceover.NewGenerator(synth, 450, "", testLogger(t))

	words := make([]string, 60)
	for i := range words {
		words[i] = "word"
	}

	_, err := gen.GeneratePreview(context.Background(), testRequest(strings.Join(words, " ")))
	require.NoError(t, err)
	require.Len(t, synth.calls, 1)
	assert.Len(t, strings.Fields(synth.calls[0]), voiceover.PreviewWordCount)
}
