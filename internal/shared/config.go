package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Backend     BackendConfig     `toml:"backend"`
	Database    DatabaseConfig    `toml:"database"`
	Fade        FadeConfig        `toml:"fade"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify OAuth credentials used to obtain the
// generation credential.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token"`
}

// BackendConfig contains settings for the mix generation backend.
type BackendConfig struct {
	BaseURL        string `toml:"base_url"`
	SubmitTimeout  int    `toml:"submit_timeout_seconds"`
	RequestsPerMin int    `toml:"requests_per_minute"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// FadeConfig contains crossfade engine settings.
type FadeConfig struct {
	FrameMillis   int `toml:"frame_millis"`
	DefaultRampMs int `toml:"default_ramp_millis"`
}

// SubmitTimeoutDuration returns the submit timeout as a [time.Duration],
// defaulting to 30s when unset.
func (b BackendConfig) SubmitTimeoutDuration() time.Duration {
	if b.SubmitTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.SubmitTimeout) * time.Second
}

// FrameInterval returns the crossfade frame pacing as a [time.Duration],
// defaulting to 16ms when unset.
func (f FadeConfig) FrameInterval() time.Duration {
	if f.FrameMillis <= 0 {
		return 16 * time.Millisecond
	}
	return time.Duration(f.FrameMillis) * time.Millisecond
}

// DefaultRamp returns the default crossfade ramp duration, defaulting to
// 2s when unset.
func (f FadeConfig) DefaultRamp() time.Duration {
	if f.DefaultRampMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(f.DefaultRampMs) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration back to the specified path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
