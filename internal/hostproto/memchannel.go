package hostproto

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// ErrChannelClosed is returned by Receive after Close.
var ErrChannelClosed = errors.New("host channel closed")

// MemoryChannel is an in-process Channel. The host side calls Deliver to
// inject frames and Sent to read what the widget sent. It backs the CLI's
// simulated host and the tests.
type MemoryChannel struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu   sync.Mutex
	sent [][]byte
}

// NewMemoryChannel creates a channel buffering up to 64 undelivered frames.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

// Deliver queues a raw frame from the host.
func (c *MemoryChannel) Deliver(frame []byte) {
	select {
	case c.inbound <- append([]byte(nil), frame...):
	case <-c.closed:
	}
}

// DeliverJSON marshals v and queues it.
func (c *MemoryChannel) DeliverJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Deliver(b)
	return nil
}

func (c *MemoryChannel) Send(_ context.Context, v any) error {
	select {
	case <-c.closed:
		return ErrChannelClosed
	default:
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sent = append(c.sent, b)
	c.mu.Unlock()
	return nil
}

func (c *MemoryChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case b := <-c.inbound:
		return b, nil
	case <-c.closed:
		return nil, ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close ends the channel; pending and future Receive calls fail.
func (c *MemoryChannel) Close() {
	c.once.Do(func() { close(c.closed) })
}

// Sent returns a copy of every frame sent by the widget.
func (c *MemoryChannel) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// SentMethods returns the method of every sent frame, in order.
func (c *MemoryChannel) SentMethods() []string {
	frames := c.Sent()
	methods := make([]string, 0, len(frames))
	for _, f := range frames {
		var m struct {
			Method string `json:"method"`
		}
		_ = json.Unmarshal(f, &m)
		methods = append(methods, m.Method)
	}
	return methods
}
