// Package protocol defines the JSON contract spoken between the panel and the
// Sirius agent server.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse is returned when a response body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// Endpoint paths.
const (
	PathHealth = "/health"
	PathChat   = "/chat"
	PathStop   = "/stop"
	PathAnswer = "/answer"
	PathStream = "/stream"
)

// Response status values.
const (
	StatusOK      = "ok"
	StatusSuccess = "success"
	StatusError   = "error"
)

// EventType tags a streamed event.
type EventType string

const (
	EventToken    EventType = "token"
	EventStatus   EventType = "status"
	EventQuestion EventType = "question"
)

// Event is one streamed push event.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the chat history sent with every task.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Query       string `json:"query"`
	ChatHistory []Turn `json:"chat_history"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Status  string          `json:"status"`
	Result  string          `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
}

// Succeeded reports whether the response carries the success indicator.
func (r *ChatResponse) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// DetailText renders the detail field. FastAPI sends a string for raised
// HTTP errors and a list of objects for validation failures.
func (r *ChatResponse) DetailText() string {
	if r == nil || len(r.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Detail, &s); err == nil {
		return s
	}
	if bytes.Equal(bytes.TrimSpace(r.Detail), []byte("null")) {
		return ""
	}
	return string(r.Detail)
}

// AnswerRequest is the body of POST /answer.
type AnswerRequest struct {
	Text string `json:"text"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	WorkerAlive *bool  `json:"worker_alive,omitempty"`
	WorkerReady *bool  `json:"worker_ready,omitempty"`
}

// StatusResponse is the generic acknowledgement returned by /stop and /answer.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Keepalive is the SSE comment written by the server when idle.
const Keepalive = "keepalive"

// Frame is one unit delivered by the stream transport: either a keepalive
// marker or the raw data payload of an SSE event.
type Frame struct {
	Keepalive bool
	Data      []byte
}

// ParseEvent decodes a frame payload into an Event.
func ParseEvent(data []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if evt.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return evt, nil
}

// EncodeEvent renders an event as an SSE data block.
func EncodeEvent(evt Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteString("data: ")
	b.Write(data)
	b.WriteString("\n\n")
	return b.Bytes(), nil
}

// EncodeKeepalive renders the SSE keepalive comment.
func EncodeKeepalive() []byte {
	return []byte(": " + Keepalive + "\n\n")
}

// IsKeepaliveComment reports whether an SSE comment line (without the leading
// colon) is the keepalive marker.
func IsKeepaliveComment(comment string) bool {
	return strings.TrimSpace(comment) == Keepalive
}
