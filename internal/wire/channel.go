// Package wire carries the host protocol over websockets.
package wire

import (
	"context"
	"errors"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Conn adapts a websocket connection to hostproto.Channel. Frames are JSON
// text messages in both directions.
type Conn struct {
	ws *websocket.Conn
}

// NewConn wraps ws.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send writes v as a JSON text frame.
func (c *Conn) Send(ctx context.Context, v any) error {
	return wsjson.Write(ctx, c.ws, v)
}

// Receive returns the next frame. Binary frames are passed through; the
// protocol decides whether they parse.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	_, b, err := c.ws.Read(ctx)
	return b, err
}

// Close closes the connection with the given status.
func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	return c.ws.Close(code, reason)
}

// IsNormalClosure reports whether err is an orderly close by the peer or a
// cancelled context.
func IsNormalClosure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
