// Package ws provides a WebSocket client for streaming speech services.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Client is a WebSocket client bound to the context it was dialed with.
type Client struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

// Dial connects to url, sending header with the handshake request.
func Dial(ctx context.Context, url string, header http.Header) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}

	clientCtx, cancel := context.WithCancel(ctx)

	return &Client{
		conn:   conn,
		ctx:    clientCtx,
		cancel: cancel,
	}, nil
}

// WriteBinary sends one binary message.
func (c *Client) WriteBinary(data []byte) error {
	return c.conn.Write(c.ctx, websocket.MessageBinary, data)
}

// WriteJSON sends v as a text message.
func (c *Client) WriteJSON(v any) error {
	return wsjson.Write(c.ctx, c.conn, v)
}

// ReadJSON reads the next text message into v.
func (c *Client) ReadJSON(v any) error {
	return wsjson.Read(c.ctx, c.conn, v)
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	defer c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// CloseNow closes the connection without waiting for the peer.
func (c *Client) CloseNow() {
	c.cancel()
	c.conn.CloseNow()
}

// IsNormalClosure reports whether err ended the connection cleanly: a normal
// close frame from the peer or a cancelled context.
func IsNormalClosure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusNoStatusRcvd:
		return true
	}
	return false
}
