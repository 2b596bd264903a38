// Package config provides the configuration structure for the voiceover service.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                       string `toml:"url"`
	VoiceoverRequestedSubject string `toml:"voiceover_requested_subject"`
	AudioObjectStoreBucket    string `toml:"audio_object_store_bucket"`
}

// SarvamConfig holds the settings for the upstream synthesis provider.
type SarvamConfig struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	ChunkLimit     int    `toml:"chunk_limit"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// HTTPConfig holds the public API settings.
type HTTPConfig struct {
	ListenAddr            string `toml:"listen_addr"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// HistoryConfig holds the settings for the generation history database.
type HistoryConfig struct {
	DatabasePath string `toml:"database_path"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS    NATSConfig    `toml:"nats"`
	Sarvam  SarvamConfig  `toml:"sarvam"`
	HTTP    HTTPConfig    `toml:"http"`
	History HistoryConfig `toml:"history"`
	Paths   PathsConfig   `toml:"paths"`
}

// Load loads the configuration for the voiceover service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
