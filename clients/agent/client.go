// Package agent provides an HTTP client for the Sirius agent server.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dohr-michael/sirius/internal/protocol"
)

// ErrUnhealthy is returned by Health when the server answers but does not
// report itself as ok.
var ErrUnhealthy = errors.New("agent server unhealthy")

// probeTimeout bounds a single health probe so that a hung server counts as a
// failed probe within one polling interval.
const probeTimeout = 2 * time.Second

// TaskError describes a task the agent server reported as failed.
type TaskError struct {
	Status  string
	Message string
}

func (e *TaskError) Error() string {
	if e.Status == "" {
		return "task failed: " + e.Message
	}
	return fmt.Sprintf("task failed (%s): %s", e.Status, e.Message)
}

// NewTaskError builds a TaskError from a failed chat response.
func NewTaskError(resp *protocol.ChatResponse, fallback string) *TaskError {
	if resp == nil {
		return &TaskError{Message: fallback}
	}
	msg := resp.Message
	if msg == "" {
		msg = resp.DetailText()
	}
	if msg == "" {
		msg = fallback
	}
	return &TaskError{Status: resp.Status, Message: msg}
}

// Client talks to the agent server over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No client-wide timeout: task requests run as long as the agent needs.
		http:   &http.Client{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "agent_client").Logger()
	return c
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) (*protocol.HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var out protocol.HealthResponse
	status, err := c.do(ctx, http.MethodGet, protocol.PathHealth, nil, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || out.Status != protocol.StatusOK {
		return &out, fmt.Errorf("%w: http %d, status %q", ErrUnhealthy, status, out.Status)
	}
	return &out, nil
}

// Chat posts a task and blocks until the agent answers. Any decodable body is
// returned as a response, whatever the HTTP status; an undecodable body
// yields protocol.ErrMalformedResponse.
func (c *Client) Chat(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error) {
	if req.ChatHistory == nil {
		req.ChatHistory = []protocol.Turn{}
	}
	var out protocol.ChatResponse
	if _, err := c.do(ctx, http.MethodPost, protocol.PathChat, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stop sends the cancellation signal.
func (c *Client) Stop(ctx context.Context) error {
	return c.ack(ctx, protocol.PathStop, nil)
}

// Answer posts the reply to a pending question.
func (c *Client) Answer(ctx context.Context, text string) error {
	return c.ack(ctx, protocol.PathAnswer, protocol.AnswerRequest{Text: text})
}

func (c *Client) ack(ctx context.Context, path string, body any) error {
	var out protocol.StatusResponse
	status, err := c.do(ctx, http.MethodPost, path, body, &out)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("post %s: http %d", path, status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", reqID).
		Int("status", resp.StatusCode).
		Msg("agent request")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read %s response: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response (http %d): %w", path, resp.StatusCode, protocol.ErrMalformedResponse)
	}
	return resp.StatusCode, nil
}
