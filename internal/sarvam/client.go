// Package sarvam provides the HTTP client for the Sarvam speech-synthesis
// API. One call synthesizes one provider-safe chunk of text and returns a
// complete WAV buffer decoded from the provider's base64 payload.
package sarvam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voxly/voiceover-service/internal/core"
)

// API endpoints and headers.
const (
	apiTextToSpeech       = "/text-to-speech"
	headerSubscriptionKey = "api-subscription-key"
	headerContentType     = "Content-Type"
	contentTypeJSON       = "application/json"
)

// Supported provider models.
const (
	ModelBulbulV2 = "bulbul:v2"
	ModelBulbulV3 = "bulbul:v3"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.sarvam.ai/api/v1"

// Fixed generation parameters, held constant across every chunk of one
// request so that the stitched segments share audio characteristics.
const (
	SampleRate      = 24000
	defaultPace     = 1.0
	defaultLoudness = 1.0
	v3Temperature   = 0.3
)

// Static errors.
var (
	ErrTextEmpty     = errors.New("text cannot be empty")
	ErrNoAudio       = errors.New("response contained no audio payload")
	ErrEmptyAudio    = errors.New("response contained an empty audio payload")
	ErrServiceStatus = errors.New("synthesis service returned non-OK status")
)

// Client is an explicitly constructed client for the synthesis API. It is
// injected into the pipeline rather than shared as package state, so tests
// can substitute a local server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New creates a synthesis client. The timeout applies to every request.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// synthesisPayload is the JSON request body per the provider contract.
// Model-dependent knobs are pointers so they are omitted entirely for the
// model that does not accept them.
type synthesisPayload struct {
	Inputs              []string `json:"inputs"`
	TargetLanguageCode  string   `json:"target_language_code"`
	Speaker             string   `json:"speaker"`
	Pace                float64  `json:"pace"`
	Model               string   `json:"model"`
	SpeechSampleRate    int      `json:"speech_sample_rate"`
	Pitch               *float64 `json:"pitch,omitempty"`
	Loudness            *float64 `json:"loudness,omitempty"`
	EnablePreprocessing *bool    `json:"enable_preprocessing,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty"`
}

// synthesisResponse carries one base64-encoded WAV file per input.
type synthesisResponse struct {
	Audios []string `json:"audios"`
}

// errorResponse is the provider's structured error body.
type errorResponse struct {
	Message string `json:"message"`
}

// Synthesize sends one text-to-speech request and returns the decoded WAV
// bytes. The text must already be within the provider's size limit; the
// chunker upstream guarantees that.
func (c *Client) Synthesize(
	ctx context.Context,
	input string,
	params core.SynthesisParams,
) ([]byte, error) {
	if input == "" {
		return nil, ErrTextEmpty
	}

	payload := buildPayload(input, params)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	url := c.baseURL + apiTextToSpeech

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerSubscriptionKey, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach synthesis service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var decoded synthesisResponse

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesis response: %w", err)
	}

	if len(decoded.Audios) == 0 || decoded.Audios[0] == "" {
		return nil, ErrNoAudio
	}

	audio, err := base64.StdEncoding.DecodeString(decoded.Audios[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio payload: %w", err)
	}

	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	return audio, nil
}

// buildPayload assembles the provider request body. bulbul:v3 uses upstream
// preprocessing with a low temperature; bulbul:v2 instead takes explicit
// pitch and loudness.
func buildPayload(input string, params core.SynthesisParams) synthesisPayload {
	model := params.Model
	if model == "" {
		model = ModelBulbulV3
	}

	pace := params.Pace
	if pace == 0 {
		pace = defaultPace
	}

	payload := synthesisPayload{
		Inputs:             []string{input},
		TargetLanguageCode: params.LanguageCode,
		Speaker:            params.VoiceID,
		Pace:               pace,
		Model:              model,
		SpeechSampleRate:   SampleRate,
	}

	switch model {
	case ModelBulbulV2:
		pitch := params.Pitch
		loudness := params.Loudness

		if loudness == 0 {
			loudness = defaultLoudness
		}

		preprocessing := false
		payload.Pitch = &pitch
		payload.Loudness = &loudness
		payload.EnablePreprocessing = &preprocessing
	default:
		preprocessing := true
		temperature := v3Temperature
		payload.EnablePreprocessing = &preprocessing
		payload.Temperature = &temperature
	}

	return payload
}

// parseErrorResponse extracts the provider's structured error message,
// falling back to the raw body so diagnostics are never lost.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var decoded errorResponse

	err := json.Unmarshal(raw, &decoded)
	if err == nil && decoded.Message != "" {
		return fmt.Errorf("%w: %s: %s", ErrServiceStatus, resp.Status, decoded.Message)
	}

	return fmt.Errorf("%w: %s: %s", ErrServiceStatus, resp.Status, string(raw))
}
