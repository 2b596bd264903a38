// Package core defines the domain types and interfaces shared by the
// voiceover service's transports and generation pipeline.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob
// store. It holds uploaded script text and finished voiceover audio.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Synthesizer produces one WAV buffer for one provider-safe chunk of text.
// Implementations make exactly one upstream request per call.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, params SynthesisParams) ([]byte, error)
}

// SynthesisParams holds the generation parameters for a single voiceover.
// They are fixed across every chunk of one request so that the resulting
// segments share identical audio characteristics and can be stitched.
type SynthesisParams struct {
	VoiceID      string
	LanguageCode string
	Model        string
	Pace         float64
	Pitch        float64
	Loudness     float64
}

// Request describes one voiceover generation at the pipeline boundary.
// The caller has already validated the voice against the catalog and
// resolved the language name to a provider locale code.
type Request struct {
	Script       string
	VoiceID      string
	LanguageCode string
	Pace         float64
}
