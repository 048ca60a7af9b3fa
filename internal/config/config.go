// Package config loads the Sirius panel configuration.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for Sirius.
type Config struct {
	Backend BackendConfig `json:"backend"`
	Voice   VoiceConfig   `json:"voice"`
	Prefs   PrefsConfig   `json:"prefs"`
	Log     LogConfig     `json:"log"`
}

// BackendConfig locates the agent server.
type BackendConfig struct {
	URL            string   `json:"url"`
	HealthInterval Duration `json:"health_interval"` // default 1s
	ReconnectDelay Duration `json:"reconnect_delay"` // default 3s
}

// VoiceConfig configures speech input and output. Voice stays unavailable
// unless enabled and a recognizer can be built.
type VoiceConfig struct {
	Enabled            bool           `json:"enabled"`
	Deepgram           DeepgramConfig `json:"deepgram"`
	CaptureCommand     string         `json:"capture_command,omitempty"`     // writes 16kHz mono s16le PCM to stdout
	SpeakCommand       string         `json:"speak_command,omitempty"`       // reads the text to speak from stdin
	SubmitDelay        Duration       `json:"submit_delay"`                  // default 1s
	RemediationCommand string         `json:"remediation_command,omitempty"` // opens the OS microphone permission settings
}

// DeepgramConfig configures the streaming recognizer.
type DeepgramConfig struct {
	APIKey   string `json:"api_key,omitempty"` // direct key or ${{ .Env.VAR }} template
	URL      string `json:"url,omitempty"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

// PrefsConfig locates the preferences database.
type PrefsConfig struct {
	Path string `json:"path"` // default $SIRIUS_PATH/prefs.db
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `json:"level"` // default info
	File  string `json:"file"`  // default $SIRIUS_PATH/logs/sirius.log
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
