package voice

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const speechQueueSize = 16

// stopGrace bounds how long a cancelled utterance may hold its output pipes.
const stopGrace = 500 * time.Millisecond

// Speaker reads assistant results aloud through an external command that takes
// the text on stdin. Utterances play one at a time in queue order.
type Speaker struct {
	command []string
	queue   chan string
	muted   atomic.Bool
	logger  zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc // current utterance
	started bool
}

// NewSpeaker builds a speaker. It returns ErrUnavailable when no command is configured.
func NewSpeaker(cmdline string, muted bool, logger zerolog.Logger) (*Speaker, error) {
	command, err := SplitCommand(cmdline)
	if err != nil {
		return nil, err
	}
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: no speak command", ErrUnavailable)
	}
	s := &Speaker{
		command: command,
		queue:   make(chan string, speechQueueSize),
		logger:  logger.With().Str("component", "speaker").Logger(),
	}
	s.muted.Store(muted)
	return s, nil
}

// Run plays queued utterances until ctx is done.
func (s *Speaker) Run(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case text := <-s.queue:
			if s.muted.Load() {
				continue
			}
			s.play(ctx, text)
		}
	}
}

func (s *Speaker) play(ctx context.Context, text string) {
	uctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	var out bytes.Buffer
	cmd := exec.CommandContext(uctx, s.command[0], s.command[1:]...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = &out
	cmd.Stderr = &out
	// Speech commands are often pipelines (synth | player); stopping must
	// reach every process, not only the shell.
	killProcessGroup(cmd)
	cmd.WaitDelay = stopGrace
	if err := cmd.Run(); err != nil && uctx.Err() == nil {
		s.logger.Error().Err(err).Str("output", strings.TrimSpace(out.String())).Msg("speech failed")
	}
}

// Speak queues text for speech after stripping markup. It is dropped while
// muted, when nothing speakable remains, or when the queue is full.
func (s *Speaker) Speak(text string) {
	if s.muted.Load() {
		return
	}
	text = StripMarkup(text)
	if text == "" {
		return
	}
	select {
	case s.queue <- text:
	default:
		s.logger.Warn().Msg("speech queue full, dropping utterance")
	}
}

// Muted reports the mute state.
func (s *Speaker) Muted() bool {
	return s.muted.Load()
}

// SetMuted sets the mute state. Any change cancels current and queued speech.
func (s *Speaker) SetMuted(muted bool) {
	if s.muted.Swap(muted) != muted {
		s.Cancel()
	}
}

// ToggleMute flips the mute state and returns the new value.
func (s *Speaker) ToggleMute() bool {
	muted := !s.muted.Load()
	s.SetMuted(muted)
	return muted
}

// Cancel stops the current utterance and drops queued ones.
func (s *Speaker) Cancel() {
	for {
		select {
		case <-s.queue:
			continue
		default:
		}
		break
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
