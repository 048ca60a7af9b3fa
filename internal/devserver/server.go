// Package devserver is a scripted stand-in for the Sirius agent server. It
// serves the same HTTP contract so the panel can be developed and tested
// without a browser-driving backend.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dohr-michael/sirius/internal/events"
	"github.com/dohr-michael/sirius/internal/protocol"
)

// Defaults for Options.
const (
	DefaultKeepalive = time.Second
	DefaultStepDelay = 150 * time.Millisecond
)

// Options configures a Server.
type Options struct {
	Addr      string
	Keepalive time.Duration
	StepDelay time.Duration
	Logger    zerolog.Logger
}

// Server is the development agent server.
type Server struct {
	httpServer *http.Server
	bus        *events.Bus
	worker     *Worker
	keepalive  time.Duration
	logger     zerolog.Logger
	cancel     context.CancelFunc
	closing    chan struct{}
	closeOnce  sync.Once
}

// New creates a server and starts its worker.
func New(opts Options) *Server {
	if opts.Keepalive <= 0 {
		opts.Keepalive = DefaultKeepalive
	}
	if opts.StepDelay <= 0 {
		opts.StepDelay = DefaultStepDelay
	}
	logger := opts.Logger.With().Str("component", "devserver").Logger()

	bus := events.NewBus(256)
	ctx, cancel := context.WithCancel(context.Background())
	worker := NewWorker(bus, opts.StepDelay, logger)
	go worker.Run(ctx)

	s := &Server{
		bus:       bus,
		worker:    worker,
		keepalive: opts.Keepalive,
		logger:    logger,
		cancel:    cancel,
		closing:   make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Get(protocol.PathHealth, s.handleHealth)
	r.Post(protocol.PathChat, s.handleChat)
	r.Post(protocol.PathStop, s.handleStop)
	r.Post(protocol.PathAnswer, s.handleAnswer)
	r.Get(protocol.PathStream, s.handleStream)
	r.Get("/events", s.handleEvents)

	s.httpServer = &http.Server{
		Addr:    opts.Addr,
		Handler: r,
	}
	return s
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("development agent server listening")
	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the worker, ends open streams and gracefully stops the
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	return s.httpServer.Shutdown(ctx)
}

// Close stops the worker and ends open streams without touching the
// listener. It is meant for servers mounted through Handler.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.closing)
		s.bus.Close()
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	alive, ready := s.worker.Alive(), s.worker.Ready()
	writeJSON(w, http.StatusOK, protocol.HealthResponse{
		Status:      protocol.StatusOK,
		WorkerAlive: &alive,
		WorkerReady: &ready,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req protocol.ChatRequest
	if !decodeBody(w, r, &req, func() error {
		if req.Query == "" {
			return errors.New("field required: query")
		}
		return nil
	}) {
		return
	}

	resp, err := s.worker.Process(r.Context(), req)
	if err != nil {
		if r.Context().Err() != nil {
			s.logger.Debug().Msg("chat client went away")
			return
		}
		writeDetail(w, http.StatusInternalServerError, "Agent worker thread is dead")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !s.worker.Alive() {
		writeDetail(w, http.StatusInternalServerError, "Agent worker thread is dead")
		return
	}
	s.worker.RequestStop()
	writeJSON(w, http.StatusOK, protocol.StatusResponse{Status: protocol.StatusSuccess, Message: "Stop signal sent"})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req protocol.AnswerRequest
	if !decodeBody(w, r, &req, nil) {
		return
	}
	s.logger.Info().Str("text", req.Text).Msg("received answer")
	if !s.worker.Answer(req.Text) {
		s.logger.Warn().Msg("answer queue full, dropping answer")
	}
	writeJSON(w, http.StatusOK, protocol.StatusResponse{Status: protocol.StatusOK})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, unsubscribe := s.bus.SubscribeChan(256)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		var chunk []byte
		select {
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		case evt, open := <-ch:
			if !open {
				return
			}
			data, err := protocol.EncodeEvent(evt.Wire())
			if err != nil {
				s.logger.Error().Err(err).Msg("encode stream event")
				continue
			}
			chunk = data
		case <-time.After(s.keepalive):
			chunk = protocol.EncodeKeepalive()
		}
		if _, err := w.Write(chunk); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	history := s.bus.History(limit)
	if history == nil {
		history = []events.Event{}
	}
	writeJSON(w, http.StatusOK, history)
}

type validationError struct {
	Type string   `json:"type"`
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
}

// decodeBody decodes a JSON body, answering 422 the way FastAPI does when the
// body is invalid. validate may be nil.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, validate func() error) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil && validate != nil {
		err = validate()
	}
	if err == nil {
		return true
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []validationError{{Type: "value_error", Loc: []string{"body"}, Msg: err.Error()}},
	})
	return false
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
