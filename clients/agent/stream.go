package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dohr-michael/sirius/internal/protocol"
)

// DefaultReconnectDelay is the pause between two stream connection attempts.
const DefaultReconnectDelay = 3 * time.Second

// maxEventSize bounds a single SSE line.
const maxEventSize = 1 << 20

// Subscription is a long-lived GET /stream connection. It reconnects on its
// own after transport errors until closed.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe opens the event stream and delivers frames to out until the
// subscription is closed or ctx is cancelled. Frames are dropped rather than
// blocking when out is full.
func (c *Client) Subscribe(ctx context.Context, out chan<- protocol.Frame, reconnectDelay time.Duration) *Subscription {
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		for {
			err := c.stream(ctx, out)
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug().Err(err).Dur("retry_in", reconnectDelay).Msg("event stream dropped")
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
		}
	}()
	return sub
}

// Close stops the subscription and waits for its goroutine to exit. It is
// safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

func (c *Client) stream(ctx context.Context, out chan<- protocol.Frame) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+protocol.PathStream, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open stream: http %d", resp.StatusCode)
	}
	c.logger.Debug().Msg("event stream opened")

	return ReadEvents(ctx, resp.Body, func(f protocol.Frame) {
		select {
		case out <- f:
		case <-ctx.Done():
		default:
			c.logger.Warn().Msg("stream consumer is slow, dropping frame")
		}
	})
}

// ReadEvents parses an SSE body, calling fn for every data event and every
// keepalive comment. Multi-line data fields are joined with newlines. It
// returns io.ErrUnexpectedEOF when the body ends, since the server never
// closes the stream on its own.
func ReadEvents(ctx context.Context, body io.Reader, fn func(protocol.Frame)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var dataLines []string
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()
		switch {
		case line == "":
			if len(dataLines) > 0 {
				fn(protocol.Frame{Data: []byte(strings.Join(dataLines, "\n"))})
				dataLines = nil
			}
		case strings.HasPrefix(line, ":"):
			if protocol.IsKeepaliveComment(line[1:]) {
				fn(protocol.Frame{Keepalive: true})
			}
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}
