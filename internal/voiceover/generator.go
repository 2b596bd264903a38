// Package voiceover orchestrates full-script voiceover generation: chunk
// the script, synthesize each chunk in order through the provider, and
// stitch the resulting WAV segments into one playable file.
package voiceover

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/book-expert/logger"
	"github.com/voxly/voiceover-service/internal/audio"
	"github.com/voxly/voiceover-service/internal/core"
	"github.com/voxly/voiceover-service/internal/text"
)

// PreviewWordCount is how much of the script a preview synthesizes: roughly
// five seconds of speech at a natural rate.
const PreviewWordCount = 25

// ErrEmptyScript is returned when a script reaches the pipeline with no
// synthesizable content. Callers are expected to reject blank scripts at
// the validation boundary before invoking the pipeline.
var ErrEmptyScript = errors.New("script has no synthesizable content")

// SynthesisError reports which chunk failed so callers can surface a
// precise failure point instead of a silent partial result.
type SynthesisError struct {
	Chunk int // 1-based index of the failing chunk
	Total int
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("failed to synthesize chunk %d of %d: %v", e.Chunk, e.Total, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Generator runs the generation pipeline. One invocation handles one user
// request; there is no shared mutable state between invocations.
type Generator struct {
	synth      core.Synthesizer
	chunkLimit int
	model      string
	log        *logger.Logger
}

// NewGenerator creates a pipeline around the given synthesizer. A
// non-positive chunkLimit falls back to the production default, and an
// empty model leaves the provider's default in effect.
func NewGenerator(synth core.Synthesizer, chunkLimit int, model string, log *logger.Logger) *Generator {
	if chunkLimit <= 0 {
		chunkLimit = text.DefaultChunkLimit
	}

	return &Generator{
		synth:      synth,
		chunkLimit: chunkLimit,
		model:      model,
		log:        log,
	}
}

// GenerateFull produces the complete voiceover for a script.
//
// Chunks are synthesized strictly in sequence, each call awaited before the
// next begins. Sequential calling bounds upstream load and makes segment
// order trivially match chunk order. Any chunk failure aborts the whole
// generation; already-fetched segments are discarded, never returned.
func (g *Generator) GenerateFull(ctx context.Context, req core.Request) ([]byte, error) {
	chunks := text.Chunk(req.Script, g.chunkLimit)
	if len(chunks) == 0 {
		return nil, ErrEmptyScript
	}

	g.log.Info("Chunked script into %d parts (%d chars total)",
		len(chunks), utf8.RuneCountInString(req.Script))

	params := core.SynthesisParams{
		VoiceID:      req.VoiceID,
		LanguageCode: req.LanguageCode,
		Model:        g.model,
		Pace:         req.Pace,
	}

	segments := make([][]byte, 0, len(chunks))

	for i, chunk := range chunks {
		segment, err := g.synth.Synthesize(ctx, chunk, params)
		if err != nil {
			return nil, &SynthesisError{Chunk: i + 1, Total: len(chunks), Err: err}
		}

		g.log.Info("Synthesized chunk %d/%d (%d bytes)", i+1, len(chunks), len(segment))

		segments = append(segments, segment)
	}

	combined, err := audio.Stitch(segments)
	if err != nil {
		return nil, fmt.Errorf("failed to stitch %d segments: %w", len(segments), err)
	}

	return combined, nil
}

// GeneratePreview produces a short sample from the opening words of the
// script. It is the same pipeline as GenerateFull over a truncated script,
// not a separate algorithm.
func (g *Generator) GeneratePreview(ctx context.Context, req core.Request) ([]byte, error) {
	req.Script = text.TruncateWords(req.Script, PreviewWordCount)

	return g.GenerateFull(ctx, req)
}
