// Package prefs persists user preferences (theme, mute) in a local SQLite file.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a preference has never been set.
var ErrNotFound = errors.New("preference not found")

// Preference names.
const (
	KeyTheme = "theme"
	KeyMuted = "muted"
)

// Theme values.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Store is a name/value preference store.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the store at path. Parent directories are created as needed.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create prefs directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open prefs database: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS prefs (
		name  TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create prefs schema: %w", err)
	}

	logger = logger.With().Str("component", "prefs").Logger()
	logger.Debug().Str("path", path).Msg("preferences store opened")

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored value for name, or ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", name, err)
	}
	return value, nil
}

// Set stores value under name, replacing any previous value.
func (s *Store) Set(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prefs (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		name, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	s.logger.Debug().Str("name", name).Str("value", value).Msg("preference saved")
	return nil
}

// All returns every stored preference.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM prefs`)
	if err != nil {
		return nil, fmt.Errorf("list prefs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan pref: %w", err)
		}
		out[name] = value
	}
	return out, rows.Err()
}

// Names returns the stored preference names in sorted order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Theme returns the persisted theme, defaulting to dark.
func (s *Store) Theme(ctx context.Context) string {
	v, err := s.Get(ctx, KeyTheme)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Msg("read theme preference")
		}
		return ThemeDark
	}
	if v != ThemeLight {
		return ThemeDark
	}
	return v
}

// SetTheme persists the theme. Only dark and light are accepted.
func (s *Store) SetTheme(ctx context.Context, theme string) error {
	if theme != ThemeDark && theme != ThemeLight {
		return fmt.Errorf("invalid theme %q: want %s or %s", theme, ThemeDark, ThemeLight)
	}
	return s.Set(ctx, KeyTheme, theme)
}

// Muted returns the persisted mute flag, defaulting to false.
func (s *Store) Muted(ctx context.Context) bool {
	v, err := s.Get(ctx, KeyMuted)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Msg("read mute preference")
		}
		return false
	}
	muted, err := strconv.ParseBool(v)
	if err != nil {
		s.logger.Warn().Str("value", v).Msg("invalid mute preference")
		return false
	}
	return muted
}

// SetMuted persists the mute flag.
func (s *Store) SetMuted(ctx context.Context, muted bool) error {
	return s.Set(ctx, KeyMuted, strconv.FormatBool(muted))
}

// ToggleTheme flips the theme and returns the new value.
func ToggleTheme(theme string) string {
	if theme == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}
