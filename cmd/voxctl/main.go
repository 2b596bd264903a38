// voxctl is a command-line client for the voiceover service HTTP API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Flag names.
const (
	flagServer   = "server"
	flagScript   = "script"
	flagFile     = "file"
	flagVoice    = "voice"
	flagLanguage = "language"
	flagOutput   = "output"
	flagUser     = "user"
	flagTier     = "tier"
	flagPreview  = "preview"
	flagVoices   = "voices"
	flagUsage    = "usage"
	flagHealth   = "health"
)

// Flag descriptions.
const (
	flagServerDesc   = "Base URL of the voiceover service"
	flagScriptDesc   = "Script text to voice"
	flagFileDesc     = "File containing the script text"
	flagVoiceDesc    = "Voice identifier (see --voices)"
	flagLanguageDesc = "Script language"
	flagOutputDesc   = "Output file path (.wav)"
	flagUserDesc     = "User identifier sent to the service"
	flagTierDesc     = "Subscription plan (free, creator, pro)"
	flagPreviewDesc  = "Generate a short preview instead of the full voiceover"
	flagVoicesDesc   = "List available voices and exit"
	flagUsageDesc    = "Show this month's usage and exit"
	flagHealthDesc   = "Check service health and exit"
)

const (
	defaultServerURL  = "http://localhost:8080"
	defaultOutputFile = "voiceover.wav"
	requestTimeout    = 5 * time.Minute
)

var (
	errScriptRequired  = errors.New("either --script or --file must be provided")
	errScriptBothForms = errors.New("cannot specify both --script and --file")
	errUserRequired    = errors.New("--user is required")
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	server   string
	script   string
	file     string
	voice    string
	language string
	output   string
	user     string
	tier     string
	preview  bool
	voices   bool
	usage    bool
	health   bool
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.server, flagServer, defaultServerURL, flagServerDesc)
	flag.StringVar(&flags.script, flagScript, "", flagScriptDesc)
	flag.StringVar(&flags.file, flagFile, "", flagFileDesc)
	flag.StringVar(&flags.voice, flagVoice, "priya", flagVoiceDesc)
	flag.StringVar(&flags.language, flagLanguage, "english", flagLanguageDesc)
	flag.StringVar(&flags.output, flagOutput, defaultOutputFile, flagOutputDesc)
	flag.StringVar(&flags.user, flagUser, "", flagUserDesc)
	flag.StringVar(&flags.tier, flagTier, "free", flagTierDesc)
	flag.BoolVar(&flags.preview, flagPreview, false, flagPreviewDesc)
	flag.BoolVar(&flags.voices, flagVoices, false, flagVoicesDesc)
	flag.BoolVar(&flags.usage, flagUsage, false, flagUsageDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.Parse()

	return flags
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	client := &apiClient{
		baseURL:    flags.server,
		userID:     flags.user,
		tier:       flags.tier,
		httpClient: &http.Client{Timeout: requestTimeout},
	}

	switch {
	case flags.health:
		return client.health()
	case flags.voices:
		return client.listVoices()
	case flags.usage:
		return client.showUsage()
	default:
		return generate(client, flags)
	}
}

func generate(client *apiClient, flags appFlags) error {
	script, err := resolveScript(flags)
	if err != nil {
		flag.Usage()

		return err
	}

	if flags.user == "" {
		return errUserRequired
	}

	if flags.preview {
		return client.preview(script, flags.voice, flags.language, flags.output)
	}

	return client.generate(script, flags.voice, flags.language, flags.output)
}

func resolveScript(flags appFlags) (string, error) {
	if flags.script != "" && flags.file != "" {
		return "", errScriptBothForms
	}

	if flags.script != "" {
		return flags.script, nil
	}

	if flags.file == "" {
		return "", errScriptRequired
	}

	data, err := os.ReadFile(flags.file)
	if err != nil {
		return "", fmt.Errorf("failed to read script file: %w", err)
	}

	return string(data), nil
}

type apiClient struct {
	baseURL    string
	userID     string
	tier       string
	httpClient *http.Client
}

func (c *apiClient) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.userID != "" {
		req.Header.Set("X-User-Id", c.userID)
		req.Header.Set("X-User-Tier", c.tier)
	}

	return req, nil
}

func (c *apiClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}

		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("service returned status %d: %s", resp.StatusCode, apiErr.Error)
		}

		return nil, fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	return data, nil
}

func (c *apiClient) health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}

	_, err = c.do(req)
	if err != nil {
		fmt.Printf("Voiceover service is not healthy: %v\n", err)

		return err
	}

	fmt.Println("Voiceover service is healthy")

	return nil
}

func (c *apiClient) listVoices() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/v1/voices", nil)
	if err != nil {
		return err
	}

	data, err := c.do(req)
	if err != nil {
		return err
	}

	var body struct {
		Voices []struct {
			ID        string   `json:"id"`
			Name      string   `json:"name"`
			Gender    string   `json:"gender"`
			Category  string   `json:"category"`
			Languages []string `json:"supportedLanguages"`
		} `json:"voices"`
	}

	err = json.Unmarshal(data, &body)
	if err != nil {
		return fmt.Errorf("failed to decode voices: %w", err)
	}

	for _, v := range body.Voices {
		fmt.Printf("%-10s %-10s %-8s %-14s %v\n", v.ID, v.Name, v.Gender, v.Category, v.Languages)
	}

	return nil
}

func (c *apiClient) showUsage() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/v1/usage", nil)
	if err != nil {
		return err
	}

	data, err := c.do(req)
	if err != nil {
		return err
	}

	var body struct {
		Plan      string `json:"plan"`
		Used      int    `json:"used"`
		Limit     int    `json:"limit"`
		Remaining int    `json:"remaining"`
	}

	err = json.Unmarshal(data, &body)
	if err != nil {
		return fmt.Errorf("failed to decode usage: %w", err)
	}

	if body.Limit < 0 {
		fmt.Printf("Plan %s: %d generations this month (unlimited)\n", body.Plan, body.Used)

		return nil
	}

	fmt.Printf("Plan %s: %d of %d generations used, %d remaining\n",
		body.Plan, body.Used, body.Limit, body.Remaining)

	return nil
}

type synthesisRequest struct {
	Script   string `json:"script"`
	VoiceID  string `json:"voice_id"`
	Language string `json:"language"`
}

func (c *apiClient) generate(script, voice, language, output string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	payload, err := json.Marshal(synthesisRequest{Script: script, VoiceID: voice, Language: language})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/tts/generate", payload)
	if err != nil {
		return err
	}

	data, err := c.do(req)
	if err != nil {
		return err
	}

	var body struct {
		AudioKey        string `json:"audio_key"`
		DurationSeconds int    `json:"duration_seconds"`
		Remaining       int    `json:"remaining"`
	}

	err = json.Unmarshal(data, &body)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return c.downloadAudio(ctx, body.AudioKey, output, body.DurationSeconds)
}

func (c *apiClient) downloadAudio(ctx context.Context, audioKey, output string, seconds int) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/audio/"+audioKey, nil)
	if err != nil {
		return err
	}

	wav, err := c.do(req)
	if err != nil {
		return err
	}

	err = os.WriteFile(output, wav, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	fmt.Printf("Generated %s (%ds)\n", output, seconds)

	return nil
}

func (c *apiClient) preview(script, voice, language, output string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	payload, err := json.Marshal(synthesisRequest{Script: script, VoiceID: voice, Language: language})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/tts/preview", payload)
	if err != nil {
		return err
	}

	wav, err := c.do(req)
	if err != nil {
		return err
	}

	err = os.WriteFile(output, wav, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	fmt.Printf("Generated preview %s\n", output)

	return nil
}
