package config

import (
	"os"
	"path/filepath"
)

// SiriusPath returns the root directory for Sirius data.
// It uses $SIRIUS_PATH if set, otherwise defaults to ~/.sirius.
func SiriusPath() string {
	if v := os.Getenv("SIRIUS_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".sirius")
	}
	return filepath.Join(home, ".sirius")
}

// ConfigPath returns the path to the Sirius config file.
func ConfigPath() string {
	return filepath.Join(SiriusPath(), "config.jsonc")
}

// DotenvPath returns the path to the Sirius .env file.
func DotenvPath() string {
	return filepath.Join(SiriusPath(), ".env")
}

// LogPath returns the default log file used while the panel owns the terminal.
func LogPath() string {
	return filepath.Join(SiriusPath(), "logs", "sirius.log")
}

// HeartbeatPath returns the file a running devserver advertises itself in.
func HeartbeatPath() string {
	return filepath.Join(SiriusPath(), "run", "devserver.heartbeat")
}
