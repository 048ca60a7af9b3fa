// Package voice bridges speech to and from the panel: streaming speech
// recognition for task input and queued speech output for assistant results.
package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"mvdan.cc/sh/v3/shell"
)

var (
	// ErrUnavailable means voice cannot be used in this environment.
	ErrUnavailable = errors.New("voice unavailable")
	// ErrPermissionDenied means the operating system refused microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrNoSpeech means a capture session ended without recognized speech.
	ErrNoSpeech = errors.New("no speech detected")
)

// Result is one recognition update. A session delivers any number of interim
// results followed by exactly one terminal result: Final text or Err.
type Result struct {
	Text  string
	Final bool
	Err   error
}

// Terminal reports whether r ends the capture session.
func (r Result) Terminal() bool {
	return r.Final || r.Err != nil
}

// Listener is one capture session.
type Listener interface {
	// Results delivers recognition updates and is closed after the terminal result.
	Results() <-chan Result
	// Stop ends capture. Audio already sent is still recognized.
	Stop()
}

// Recognizer starts capture sessions.
type Recognizer interface {
	Listen(ctx context.Context) (Listener, error)
}

// MergeTranscript appends recognized text to what the user already typed,
// inserting a separating space when needed.
func MergeTranscript(current, final string) string {
	final = strings.TrimSpace(final)
	switch {
	case final == "":
		return current
	case current == "":
		return final
	case endsWithSpace(current):
		return current + final
	default:
		return current + " " + final
	}
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

// SplitCommand splits a configured command line into program and arguments
// using shell quoting rules. Environment references are expanded.
func SplitCommand(cmdline string) ([]string, error) {
	if strings.TrimSpace(cmdline) == "" {
		return nil, nil
	}
	args, err := shell.Fields(cmdline, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", cmdline, err)
	}
	return args, nil
}

func isPermissionDenied(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, marker := range []string{"permission denied", "not permitted", "access denied", "not authorized"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
