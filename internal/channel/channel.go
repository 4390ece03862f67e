// Package channel provides the duplex connection a chat client talks to the
// relay over. The reconnection policy lives entirely behind Connector.
package channel

import (
	"context"
	"errors"
)

var (
	// ErrNotReady is returned by Send while the channel has no live connection.
	ErrNotReady = errors.New("channel not ready")
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("channel closed")
)

// Handlers are the callbacks a channel invokes. Both are called from a
// single goroutine, one at a time, in delivery order.
type Handlers struct {
	// OnReady fires after each (re)established connection.
	OnReady func()
	// OnMessage fires once per inbound text frame.
	OnMessage func(frame []byte)
}

// Channel is a live duplex connection to the relay.
type Channel interface {
	// Send writes one text frame.
	Send(ctx context.Context, frame []byte) error
	// Ready reports whether a connection is currently established.
	Ready() bool
	// Close stops the channel. It is safe to call more than once.
	Close() error
}

// Connector acquires channels. Implementations decide how and whether to
// reconnect.
type Connector interface {
	Connect(ctx context.Context, h Handlers) (Channel, error)
}
