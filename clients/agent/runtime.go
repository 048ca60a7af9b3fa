package agent

import (
	"context"
	"sync"
	"time"

	"github.com/dohr-michael/sirius/internal/protocol"
	"github.com/dohr-michael/sirius/internal/session"
)

// frameBuffer is the capacity of the frame channel shared by successive
// subscriptions.
const frameBuffer = 256

// Thunk is a blocking unit of work whose return value is fed back into the
// session as a result message.
type Thunk func() any

// Runtime executes session effects against a Client. Stream effects are
// applied immediately; request effects become Thunks that the caller runs off
// its event loop.
type Runtime struct {
	ctx            context.Context
	client         *Client
	reconnectDelay time.Duration
	frames         chan protocol.Frame

	mu  sync.Mutex
	sub *Subscription
}

// NewRuntime creates a runtime bound to ctx. Cancelling ctx aborts every
// request and the stream.
func NewRuntime(ctx context.Context, client *Client, reconnectDelay time.Duration) *Runtime {
	return &Runtime{
		ctx:            ctx,
		client:         client,
		reconnectDelay: reconnectDelay,
		frames:         make(chan protocol.Frame, frameBuffer),
	}
}

// Frames returns the channel receiving frames from whichever subscription is
// currently open.
func (r *Runtime) Frames() <-chan protocol.Frame { return r.frames }

// Probe returns a thunk performing one health probe.
func (r *Runtime) Probe() Thunk {
	return func() any {
		_, err := r.client.Health(r.ctx)
		return session.ProbeResult{Err: err}
	}
}

// Execute applies eff. It returns a thunk for request effects and nil for
// effects it applied inline or does not own.
func (r *Runtime) Execute(eff session.Effect) Thunk {
	switch e := eff.(type) {
	case session.OpenStream:
		r.openStream()
	case session.CloseStream:
		r.closeStream()
	case session.PostChat:
		return func() any {
			resp, err := r.client.Chat(r.ctx, e.Request)
			return session.ChatResult{TaskID: e.TaskID, Response: resp, Err: err}
		}
	case session.PostStop:
		return func() any {
			return session.StopResult{Err: r.client.Stop(r.ctx)}
		}
	case session.PostAnswer:
		return func() any {
			return session.AnswerResult{Err: r.client.Answer(r.ctx, e.Text)}
		}
	}
	return nil
}

// Streaming reports whether a subscription is open.
func (r *Runtime) Streaming() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sub != nil
}

// Close tears down the open subscription, if any.
func (r *Runtime) Close() {
	r.closeStream()
}

func (r *Runtime) openStream() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		r.sub.Close()
	}
	r.sub = r.client.Subscribe(r.ctx, r.frames, r.reconnectDelay)
}

func (r *Runtime) closeStream() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		r.sub.Close()
		r.sub = nil
	}
}
