package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Backend.BaseURL == "" {
		t.Error("default backend base_url should be set")
	}
	if config.Database.Path == "" {
		t.Error("default database path should be set")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("parses a valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[credentials.spotify]
client_id = "cid"
client_secret = "secret"

[backend]
base_url = "https://mix.example.com"
requests_per_minute = 10

[fade]
frame_millis = 8
default_ramp_millis = 500
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if config.Credentials.Spotify.ClientID != "cid" {
			t.Errorf("ClientID = %q", config.Credentials.Spotify.ClientID)
		}
		if config.Backend.BaseURL != "https://mix.example.com" {
			t.Errorf("BaseURL = %q", config.Backend.BaseURL)
		}
		if config.Fade.FrameInterval() != 8*time.Millisecond {
			t.Errorf("FrameInterval = %v", config.Fade.FrameInterval())
		}
		if config.Fade.DefaultRamp() != 500*time.Millisecond {
			t.Errorf("DefaultRamp = %v", config.Fade.DefaultRamp())
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		os.WriteFile(path, []byte("[[[["), 0644)
		if _, err := LoadConfig(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	config := DefaultConfig()
	config.Credentials.Spotify.AccessToken = "token-abc"
	config.Backend.BaseURL = "https://mix.example.com"

	if err := SaveConfig(path, config); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Credentials.Spotify.AccessToken != "token-abc" {
		t.Errorf("AccessToken = %q", loaded.Credentials.Spotify.AccessToken)
	}
	if loaded.Backend.BaseURL != "https://mix.example.com" {
		t.Errorf("BaseURL = %q", loaded.Backend.BaseURL)
	}
}

func TestCreateConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("CreateConfigFile: %v", err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Errorf("created config does not parse: %v", err)
	}

	// Never clobber an existing config.
	if err := CreateConfigFile(path); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestDurationDefaults(t *testing.T) {
	var fade FadeConfig
	if fade.FrameInterval() != 16*time.Millisecond {
		t.Errorf("FrameInterval zero default = %v", fade.FrameInterval())
	}
	if fade.DefaultRamp() != 2*time.Second {
		t.Errorf("DefaultRamp zero default = %v", fade.DefaultRamp())
	}

	var backend BackendConfig
	if backend.SubmitTimeoutDuration() != 30*time.Second {
		t.Errorf("SubmitTimeoutDuration zero default = %v", backend.SubmitTimeoutDuration())
	}
}
