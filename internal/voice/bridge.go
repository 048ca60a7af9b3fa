package voice

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
)

// InputState is the speech input state.
type InputState int

const (
	Idle InputState = iota
	Listening
)

func (s InputState) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// User-facing voice hints.
const (
	PlaceholderListening = "Listening..."
	HintPermissionDenied = "Microphone access denied."
	HintNoSpeech         = "No speech detected. Try again."
	HintFailed           = "Voice input failed."
)

// Event carries one recognition update back to the event loop. Gen identifies
// the capture session it belongs to.
type Event struct {
	Gen    uint64
	Result Result
	Closed bool
}

// Wait blocks for the next update of a capture session.
type Wait func() Event

// Outcome tells the caller what to do with the input after an update.
type Outcome struct {
	// Text is final recognized text to merge into the input.
	Text string
	// Submit requests an automatic submit after the configured delay.
	Submit bool
}

// Bridge tracks speech input for one panel: at most one capture session, a
// single toggle, interim text for the placeholder, and error hints.
type Bridge struct {
	recognizer  Recognizer
	remediation []string
	logger      zerolog.Logger

	state    InputState
	listener Listener
	gen      uint64
	interim  string
	hint     string
	offer    bool
}

// NewBridge builds a bridge. A nil recognizer leaves voice input unavailable.
func NewBridge(recognizer Recognizer, remediationCommand string, logger zerolog.Logger) *Bridge {
	logger = logger.With().Str("component", "voice").Logger()
	remediation, err := SplitCommand(remediationCommand)
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring remediation command")
		remediation = nil
	}
	return &Bridge{
		recognizer:  recognizer,
		remediation: remediation,
		logger:      logger,
	}
}

// Available reports whether voice input can be offered at all.
func (b *Bridge) Available() bool { return b.recognizer != nil }

// State returns the input state.
func (b *Bridge) State() InputState { return b.state }

// Hint returns the last error hint, if any.
func (b *Bridge) Hint() string { return b.hint }

// RemediationOffered reports whether the permission remediation action applies.
func (b *Bridge) RemediationOffered() bool { return b.offer }

// Placeholder returns the input placeholder while listening, or fallback.
func (b *Bridge) Placeholder(fallback string) string {
	if b.state != Listening {
		return fallback
	}
	if b.interim != "" {
		return b.interim
	}
	return PlaceholderListening
}

// Toggle starts a capture session when idle, or stops the current one. When a
// session starts, the returned Wait delivers its first update.
func (b *Bridge) Toggle(ctx context.Context) (Wait, error) {
	if !b.Available() {
		return nil, ErrUnavailable
	}
	if b.state == Listening {
		b.listener.Stop()
		return nil, nil
	}

	listener, err := b.recognizer.Listen(ctx)
	if err != nil {
		b.fail(err)
		return nil, err
	}

	b.gen++
	b.state = Listening
	b.listener = listener
	b.interim = ""
	b.hint = ""
	b.offer = false
	b.logger.Debug().Uint64("gen", b.gen).Msg("listening")
	return b.wait(), nil
}

func (b *Bridge) wait() Wait {
	gen, listener := b.gen, b.listener
	return func() Event {
		r, ok := <-listener.Results()
		if !ok {
			return Event{Gen: gen, Closed: true}
		}
		return Event{Gen: gen, Result: r}
	}
}

// Handle applies one update. It returns the input outcome and, while the
// session continues, the Wait for the next update.
func (b *Bridge) Handle(ev Event) (Outcome, Wait) {
	if ev.Gen != b.gen || b.state != Listening {
		return Outcome{}, nil
	}

	switch {
	case ev.Closed:
		b.reset()
		return Outcome{}, nil
	case ev.Result.Err != nil:
		b.reset()
		b.fail(ev.Result.Err)
		return Outcome{}, nil
	case ev.Result.Final:
		b.reset()
		return Outcome{Text: ev.Result.Text, Submit: ev.Result.Text != ""}, nil
	default:
		b.interim = ev.Result.Text
		return Outcome{}, b.wait()
	}
}

// Cancel abandons the current session without delivering its text.
func (b *Bridge) Cancel() {
	if b.state != Listening {
		return
	}
	b.listener.Stop()
	b.gen++
	b.reset()
}

func (b *Bridge) reset() {
	b.state = Idle
	b.listener = nil
	b.interim = ""
}

func (b *Bridge) fail(err error) {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		b.hint = HintPermissionDenied
		b.offer = true
	case errors.Is(err, ErrNoSpeech):
		b.hint = HintNoSpeech
	default:
		b.hint = HintFailed
	}
	b.logger.Warn().Err(err).Msg("voice input ended with an error")
}

// Remediate runs the configured remediation command, typically opening the
// system microphone privacy settings.
func (b *Bridge) Remediate(ctx context.Context) error {
	if !b.offer {
		return nil
	}
	if len(b.remediation) == 0 {
		return fmt.Errorf("%w: no remediation command", ErrUnavailable)
	}
	b.offer = false
	cmd := exec.CommandContext(ctx, b.remediation[0], b.remediation[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("run remediation: %w", err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			b.logger.Warn().Err(err).Msg("remediation command failed")
		}
	}()
	return nil
}
