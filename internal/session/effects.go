package session

import "github.com/dohr-michael/sirius/internal/protocol"

// Effect is a side effect requested by a transition. Runtimes execute effects
// off the event loop and feed the outcome back as a result message.
type Effect interface {
	effect()
}

// OpenStream asks the runtime to open the event subscription, closing any
// previous one first.
type OpenStream struct{}

// CloseStream asks the runtime to close the event subscription. Closing an
// already closed subscription is a no-op.
type CloseStream struct{}

// PostChat dispatches a task. The outcome is reported as a ChatResult carrying
// the same TaskID.
type PostChat struct {
	TaskID  uint64
	Request protocol.ChatRequest
}

// PostStop sends the cancellation signal. The outcome is reported as a StopResult.
type PostStop struct{}

// PostAnswer sends an answer to the pending question. The outcome is reported
// as an AnswerResult.
type PostAnswer struct {
	Text string
}

// Speak queues an assistant result for text-to-speech.
type Speak struct {
	Text string
}

func (OpenStream) effect()  {}
func (CloseStream) effect() {}
func (PostChat) effect()    {}
func (PostStop) effect()    {}
func (PostAnswer) effect()  {}
func (Speak) effect()       {}

// ProbeResult is the outcome of one health probe.
type ProbeResult struct {
	Err error
}

// StreamFrame carries one frame received on the event subscription.
type StreamFrame struct {
	Frame protocol.Frame
}

// ChatResult is the outcome of a PostChat effect. Err is set on transport
// failure or when the body could not be decoded.
type ChatResult struct {
	TaskID   uint64
	Response *protocol.ChatResponse
	Err      error
}

// StopResult is the outcome of a PostStop effect.
type StopResult struct {
	Err error
}

// AnswerResult is the outcome of a PostAnswer effect.
type AnswerResult struct {
	Err error
}
