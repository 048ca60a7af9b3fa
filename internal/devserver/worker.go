package devserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dohr-michael/sirius/internal/events"
	"github.com/dohr-michael/sirius/internal/protocol"
)

// ErrWorkerDead is returned when a task is submitted after the worker exited.
var ErrWorkerDead = errors.New("agent worker is not running")

// Scripted texts.
const (
	ResultStopped   = "Task stopped by user."
	DefaultQuestion = "Which option should I pick?"
)

const answerQueueSize = 16

type job struct {
	req    protocol.ChatRequest
	result chan protocol.ChatResponse
}

// Worker runs scripted tasks one at a time, publishing progress on the bus.
// A query containing '?' makes the task ask a question and wait for an
// answer; a query starting with "fail" ends with an error response.
type Worker struct {
	bus       *events.Bus
	logger    zerolog.Logger
	stepDelay time.Duration

	jobs    chan job
	answers chan string
	stop    atomic.Bool
	alive   atomic.Bool
	ready   atomic.Bool
	done    chan struct{}
}

// NewWorker creates a worker. stepDelay paces the streamed tokens.
func NewWorker(bus *events.Bus, stepDelay time.Duration, logger zerolog.Logger) *Worker {
	return &Worker{
		bus:       bus,
		logger:    logger.With().Str("component", "worker").Logger(),
		stepDelay: stepDelay,
		jobs:      make(chan job),
		answers:   make(chan string, answerQueueSize),
		done:      make(chan struct{}),
	}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.alive.Store(true)
	defer func() {
		w.alive.Store(false)
		close(w.done)
	}()
	w.ready.Store(true)
	w.logger.Info().Msg("worker ready")

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-w.jobs:
			w.logger.Info().Str("query", j.req.Query).Int("history", len(j.req.ChatHistory)).Msg("processing task")
			j.result <- w.handle(ctx, j.req)
		}
	}
}

// Alive reports whether the worker loop is running.
func (w *Worker) Alive() bool { return w.alive.Load() }

// Ready reports whether the worker finished initializing.
func (w *Worker) Ready() bool { return w.ready.Load() }

// Process queues a task and waits for its response.
func (w *Worker) Process(ctx context.Context, req protocol.ChatRequest) (protocol.ChatResponse, error) {
	j := job{req: req, result: make(chan protocol.ChatResponse, 1)}
	select {
	case w.jobs <- j:
	case <-w.done:
		return protocol.ChatResponse{}, ErrWorkerDead
	case <-ctx.Done():
		return protocol.ChatResponse{}, ctx.Err()
	}

	select {
	case resp := <-j.result:
		return resp, nil
	case <-ctx.Done():
		return protocol.ChatResponse{}, ctx.Err()
	}
}

// RequestStop asks the running task to stop at its next step.
func (w *Worker) RequestStop() {
	w.stop.Store(true)
}

// Answer hands the user's reply to a waiting question. It reports false when
// the answer queue is full.
func (w *Worker) Answer(text string) bool {
	select {
	case w.answers <- text:
		return true
	default:
		return false
	}
}

func (w *Worker) handle(ctx context.Context, req protocol.ChatRequest) protocol.ChatResponse {
	w.stop.Store(false)
	w.drainAnswers()

	w.publish(ctx, protocol.EventStatus, "Planning the task...")
	for _, word := range thoughts(req) {
		if !w.pause(ctx) {
			return stopped()
		}
		w.publish(ctx, protocol.EventToken, word+" ")
	}

	var answer string
	if strings.Contains(req.Query, "?") {
		w.publish(ctx, protocol.EventQuestion, DefaultQuestion)
		w.publish(ctx, protocol.EventStatus, "Waiting for the user...")
		var ok bool
		if answer, ok = w.waitAnswer(ctx); !ok {
			return stopped()
		}
		w.publish(ctx, protocol.EventStatus, "Continuing with: "+answer)
	}

	if !w.pause(ctx) {
		return stopped()
	}
	w.publish(ctx, protocol.EventStatus, "Wrapping up")

	if strings.HasPrefix(strings.ToLower(req.Query), "fail") {
		return protocol.ChatResponse{Status: protocol.StatusError, Message: "Could not complete the task: " + req.Query}
	}
	result := "Done: " + req.Query
	if answer != "" {
		result += fmt.Sprintf(" (you picked %q)", answer)
	}
	return protocol.ChatResponse{Status: protocol.StatusSuccess, Result: result}
}

func stopped() protocol.ChatResponse {
	return protocol.ChatResponse{Status: protocol.StatusSuccess, Result: ResultStopped}
}

func thoughts(req protocol.ChatRequest) []string {
	text := fmt.Sprintf("Reading the request %q with %d earlier turns. Picking the next browser action.",
		req.Query, len(req.ChatHistory))
	return strings.Fields(text)
}

// pause waits one step. It reports false when the task must stop.
func (w *Worker) pause(ctx context.Context) bool {
	if w.stop.Load() {
		return false
	}
	select {
	case <-time.After(w.stepDelay):
	case <-ctx.Done():
		return false
	}
	return !w.stop.Load()
}

func (w *Worker) waitAnswer(ctx context.Context) (string, bool) {
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()
	for {
		select {
		case answer := <-w.answers:
			return answer, true
		case <-poll.C:
			if w.stop.Load() {
				return "", false
			}
		case <-ctx.Done():
			return "", false
		}
	}
}

func (w *Worker) drainAnswers() {
	for {
		select {
		case stale := <-w.answers:
			w.logger.Debug().Str("answer", stale).Msg("discarding stale answer")
		default:
			return
		}
	}
}

func (w *Worker) publish(ctx context.Context, typ protocol.EventType, content string) {
	if err := w.bus.Publish(ctx, events.NewEvent(typ, content)); err != nil {
		w.logger.Warn().Err(err).Str("type", string(typ)).Msg("publish event")
	}
}
