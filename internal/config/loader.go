package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/tailscale/hujson"
)

// Defaults.
const (
	DefaultBackendURL     = "http://127.0.0.1:8000"
	DefaultHealthInterval = time.Second
	DefaultReconnectDelay = 3 * time.Second
	DefaultSubmitDelay    = time.Second
	DefaultDeepgramURL    = "wss://api.deepgram.com/v1/listen"
	DefaultDeepgramModel  = "nova-2"
	DefaultLogLevel       = "info"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, expands ${{ .Env.VAR }} templates,
// unmarshals it into Config, and applies defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		// Expand templates first, they live inside JSON strings.
		expanded := expandEnvTemplates(string(data))
		std, err := hujson.Standardize([]byte(expanded))
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if err := json.Unmarshal(std, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Backend.URL == "" {
		if v := os.Getenv("SIRIUS_BACKEND_URL"); v != "" {
			cfg.Backend.URL = v
		} else {
			cfg.Backend.URL = DefaultBackendURL
		}
	}
	if cfg.Backend.HealthInterval <= 0 {
		cfg.Backend.HealthInterval = Duration(DefaultHealthInterval)
	}
	if cfg.Backend.ReconnectDelay <= 0 {
		cfg.Backend.ReconnectDelay = Duration(DefaultReconnectDelay)
	}

	if cfg.Voice.SubmitDelay <= 0 {
		cfg.Voice.SubmitDelay = Duration(DefaultSubmitDelay)
	}
	if cfg.Voice.Deepgram.URL == "" {
		cfg.Voice.Deepgram.URL = DefaultDeepgramURL
	}
	if cfg.Voice.Deepgram.Model == "" {
		cfg.Voice.Deepgram.Model = DefaultDeepgramModel
	}
	if cfg.Voice.Deepgram.APIKey == "" {
		cfg.Voice.Deepgram.APIKey = os.Getenv("DEEPGRAM_API_KEY")
	}

	if cfg.Prefs.Path == "" {
		cfg.Prefs.Path = filepath.Join(SiriusPath(), "prefs.db")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.File == "" {
		cfg.Log.File = LogPath()
	}
}
