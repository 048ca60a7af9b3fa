// Package session holds the panel's session controller: a single owned state
// record whose transitions return the side effects a runtime must execute.
//
// Nothing in this package performs I/O. The TUI and the headless ask command
// feed it probe outcomes, stream frames, user actions and request completions,
// and run the returned effects off their event loop.
package session

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/dohr-michael/sirius/internal/protocol"
)

// Errors returned by user actions that are rejected without side effects.
var (
	ErrEmptyInput   = errors.New("input is empty")
	ErrDisconnected = errors.New("agent server is not connected")
	ErrBusy         = errors.New("a task is already in progress")
	ErrNotAsked     = errors.New("no question is pending")
	ErrIdle         = errors.New("no task is in progress")
)

// ConnectionState tracks backend liveness as seen by the health monitor.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connected
)

func (c ConnectionState) String() string {
	if c == Connected {
		return "connected"
	}
	return "disconnected"
}

// PendingState is the interaction currently outstanding with the agent.
type PendingState int

const (
	Idle PendingState = iota
	AwaitingResult
	AwaitingAnswer
)

func (p PendingState) String() string {
	switch p {
	case AwaitingResult:
		return "awaiting_result"
	case AwaitingAnswer:
		return "awaiting_answer"
	default:
		return "idle"
	}
}

// Status line texts.
const (
	StatusConnected      = "Connected to agent server"
	StatusConnectionLost = "Connection lost. Reconnecting..."
	StatusThinking       = "Thinking..."
	StatusStopping       = "Stopping..."
	StatusWaitingAnswer  = "Waiting for your answer..."
	StatusAnswerSent     = "Answer sent, continuing..."
	StatusAnswerFailed   = "Could not send your answer. Try again."
)

// Placeholder texts for the input field.
const (
	PlaceholderTask         = "Describe a task..."
	PlaceholderAnswer       = "Type your answer..."
	PlaceholderDisconnected = "Waiting for the agent server..."
)

// Assistant-authored fallback messages.
const (
	Greeting           = "Hi, I'm Sirius. Tell me what to do and I'll drive the browser for you."
	MessageUnreachable = "Could not reach the agent server. Make sure it is running and try again."
	MessageTaskFailed  = "The agent could not complete this task."
)

// Session is the controller state. The zero value is not usable; call New.
type Session struct {
	logger zerolog.Logger

	conn    ConnectionState
	pending PendingState

	history    []protocol.Turn
	transcript transcript
	status     string

	// answerStatus is the status line when the in-flight answer was sent;
	// the acknowledgement only replaces it if the stream has not since.
	answerInFlight bool
	answerStatus   string

	// lastTask is the id of the most recently dispatched task; activeTask is
	// the one the UI is waiting on (0 once reset). stoppedTask is the task
	// reset by a stop acknowledgement whose response may still arrive.
	lastTask    uint64
	activeTask  uint64
	stoppedTask uint64

	thinking *thinkingBuffer
}

// New returns a disconnected, idle session showing the greeting.
func New(logger zerolog.Logger) *Session {
	s := &Session{logger: logger.With().Str("component", "session").Logger()}
	s.transcript.reset(Greeting)
	return s
}

// Connection returns the current connection state.
func (s *Session) Connection() ConnectionState { return s.conn }

// Pending returns the current pending interaction state.
func (s *Session) Pending() PendingState { return s.pending }

// Status returns the status line, empty when none is shown.
func (s *Session) Status() string { return s.status }

// History returns a copy of the conversation history.
func (s *Session) History() []protocol.Turn {
	out := make([]protocol.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Transcript returns a copy of the displayed transcript.
func (s *Session) Transcript() []Message {
	return s.transcript.snapshot()
}

// ActiveTask returns the id of the task the UI waits on, 0 when none.
func (s *Session) ActiveTask() uint64 { return s.activeTask }

// AnswerInFlight reports whether an answer submission is outstanding.
func (s *Session) AnswerInFlight() bool { return s.answerInFlight }

// InputEnabled reports whether the input field accepts text.
func (s *Session) InputEnabled() bool {
	return s.conn == Connected && s.pending != AwaitingResult && !s.answerInFlight
}

// AnswerMode reports whether submissions are routed to the answer endpoint.
func (s *Session) AnswerMode() bool { return s.pending == AwaitingAnswer }

// StopVisible reports whether the stop control replaces the send control.
func (s *Session) StopVisible() bool { return s.pending != Idle }

// SendVisible reports whether the send control is shown.
func (s *Session) SendVisible() bool { return !s.StopVisible() }

// Placeholder returns the input field placeholder for the current state.
func (s *Session) Placeholder() string {
	switch {
	case s.conn == Disconnected:
		return PlaceholderDisconnected
	case s.pending == AwaitingAnswer && !s.answerInFlight:
		return PlaceholderAnswer
	default:
		return PlaceholderTask
	}
}

// Handle dispatches a completion or stream message to its transition.
// Unknown messages are ignored.
func (s *Session) Handle(msg any) []Effect {
	switch m := msg.(type) {
	case ProbeResult:
		return s.HandleProbe(m.Err == nil)
	case StreamFrame:
		return s.HandleFrame(m.Frame)
	case ChatResult:
		return s.HandleChatResult(m)
	case StopResult:
		return s.HandleStopResult(m.Err)
	case AnswerResult:
		return s.HandleAnswerResult(m.Err)
	}
	return nil
}
