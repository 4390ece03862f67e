package testutils

import (
	"context"
	"sync"

	"github.com/nfrund/relaychat/internal/channel"
)

// FakeConnector hands out in-memory channels driven by the test.
type FakeConnector struct {
	mu       sync.Mutex
	channels []*FakeChannel
	err      error
}

// NewFakeConnector creates a connector whose channels start not ready.
func NewFakeConnector() *FakeConnector {
	return &FakeConnector{}
}

// FailConnect makes the next Connect calls return err.
func (f *FakeConnector) FailConnect(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Connect implements channel.Connector.
func (f *FakeConnector) Connect(ctx context.Context, h channel.Handlers) (channel.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ch := &FakeChannel{handlers: h}
	f.channels = append(f.channels, ch)
	return ch, nil
}

// Last returns the most recently connected channel, or nil.
func (f *FakeConnector) Last() *FakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.channels) == 0 {
		return nil
	}
	return f.channels[len(f.channels)-1]
}

// FakeChannel records outbound frames and lets the test fire handlers.
type FakeChannel struct {
	handlers channel.Handlers

	mu      sync.Mutex
	ready   bool
	closed  bool
	sent    []string
	sendErr error
}

// Open marks the channel ready and fires OnReady.
func (c *FakeChannel) Open() {
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	if c.handlers.OnReady != nil {
		c.handlers.OnReady()
	}
}

// Drop marks the channel not ready, as a lost connection would.
func (c *FakeChannel) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
}

// Deliver fires OnMessage with frame.
func (c *FakeChannel) Deliver(frame string) {
	if c.handlers.OnMessage != nil {
		c.handlers.OnMessage([]byte(frame))
	}
}

// FailSends makes Send return err until called again with nil.
func (c *FakeChannel) FailSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// Sent returns a copy of every frame sent so far.
func (c *FakeChannel) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

// Closed reports whether Close was called.
func (c *FakeChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Send implements channel.Channel.
func (c *FakeChannel) Send(ctx context.Context, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return channel.ErrClosed
	case c.sendErr != nil:
		return c.sendErr
	case !c.ready:
		return channel.ErrNotReady
	}
	c.sent = append(c.sent, string(frame))
	return nil
}

// Ready implements channel.Channel.
func (c *FakeChannel) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready && !c.closed
}

// Close implements channel.Channel.
func (c *FakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
