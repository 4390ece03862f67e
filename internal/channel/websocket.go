package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
)

const defaultReadLimit = 1 << 20

// WebsocketConnector dials the relay with coder/websocket and keeps the
// connection alive, redialing with exponential backoff whenever it drops.
type WebsocketConnector struct {
	endpoint        string
	initialInterval time.Duration
	maxInterval     time.Duration
	writeTimeout    time.Duration
	readLimit       int64
	dialOptions     *websocket.DialOptions
}

// Option configures a WebsocketConnector.
type Option func(*WebsocketConnector)

// WithBackoff sets the first and the largest redial delay.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *WebsocketConnector) {
		c.initialInterval = initial
		c.maxInterval = max
	}
}

// WithWriteTimeout bounds every frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *WebsocketConnector) { c.writeTimeout = d }
}

// WithReadLimit sets the largest inbound frame accepted, in bytes.
func WithReadLimit(n int64) Option {
	return func(c *WebsocketConnector) { c.readLimit = n }
}

// WithDialOptions passes options through to websocket.Dial.
func WithDialOptions(opts *websocket.DialOptions) Option {
	return func(c *WebsocketConnector) { c.dialOptions = opts }
}

// NewWebsocketConnector creates a connector for the given ws:// or wss:// endpoint.
func NewWebsocketConnector(endpoint string, opts ...Option) *WebsocketConnector {
	c := &WebsocketConnector{
		endpoint:        endpoint,
		initialInterval: time.Second,
		maxInterval:     30 * time.Second,
		writeTimeout:    10 * time.Second,
		readLimit:       defaultReadLimit,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect starts a background supervisor and returns immediately. The
// returned channel becomes ready once the first dial succeeds. Cancelling
// ctx has the same effect as Close.
func (c *WebsocketConnector) Connect(ctx context.Context, h Handlers) (Channel, error) {
	if c.endpoint == "" {
		return nil, errors.New("websocket connector: empty endpoint")
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &socket{
		connector: c,
		handlers:  h,
		cancel:    cancel,
		done:      make(chan struct{}),
		redial:    c.newBackOff(),
	}
	go s.supervise(ctx)
	return s, nil
}

// socket is the Channel returned by WebsocketConnector.
type socket struct {
	connector *WebsocketConnector
	handlers  Handlers
	cancel    context.CancelFunc
	done      chan struct{}

	// redial spaces out reconnects after an established connection drops.
	// It carries across cycles so a relay that accepts and then hangs up
	// sees growing delays.
	redial *backoff.ExponentialBackOff

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool
}

// supervise owns the connection lifecycle: dial, announce ready, read until
// the connection fails, wait, repeat.
func (s *socket) supervise(ctx context.Context) {
	defer close(s.done)
	endpoint := s.connector.endpoint

	for {
		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("Giving up on relay connection", "endpoint", endpoint, "error", err)
			}
			return
		}
		conn.SetReadLimit(s.connector.readLimit)
		s.setConn(conn)
		slog.Info("Relay connection established", "endpoint", endpoint)
		connectedAt := time.Now()

		if s.handlers.OnReady != nil {
			s.handlers.OnReady()
		}

		delivered, err := s.readPump(ctx, conn)
		s.setConn(nil)
		conn.CloseNow()

		if ctx.Err() != nil {
			return
		}

		// Only a connection that did useful work earns a fresh schedule.
		if delivered > 0 || time.Since(connectedAt) >= s.connector.maxInterval {
			s.redial.Reset()
		}
		wait := s.redial.NextBackOff()
		slog.Warn("Relay connection lost, reconnecting", "endpoint", endpoint, "retry_in", wait, "error", err)

		if !sleep(ctx, wait) {
			return
		}
	}
}

// sleep waits for d and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *WebsocketConnector) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = c.maxInterval
	return b
}

func (s *socket) dial(ctx context.Context) (*websocket.Conn, error) {
	return backoff.Retry(ctx, func() (*websocket.Conn, error) {
		conn, _, err := websocket.Dial(ctx, s.connector.endpoint, s.connector.dialOptions)
		return conn, err
	},
		backoff.WithBackOff(s.connector.newBackOff()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("Relay dial failed", "endpoint", s.connector.endpoint, "retry_in", next, "error", err)
		}),
	)
}

// readPump delivers inbound text frames to OnMessage until the connection
// fails. It returns how many frames it delivered.
func (s *socket) readPump(ctx context.Context, conn *websocket.Conn) (int, error) {
	delivered := 0
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return delivered, err
		}
		if typ != websocket.MessageText {
			slog.Debug("Ignoring non-text frame from relay", "type", typ)
			continue
		}
		delivered++
		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(data)
		}
	}
}

func (s *socket) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

// Send writes frame to the current connection. It does not queue: while
// reconnecting it fails with ErrNotReady.
func (s *socket) Send(ctx context.Context, frame []byte) error {
	s.mu.RLock()
	conn, closed := s.conn, s.closed
	s.mu.RUnlock()

	if closed {
		return ErrClosed
	}
	if conn == nil {
		return ErrNotReady
	}

	ctx, cancel := context.WithTimeout(ctx, s.connector.writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (s *socket) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil && !s.closed
}

// Close shuts the connection down and waits for the supervisor to exit.
func (s *socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client closed")
	}
	s.cancel()
	<-s.done
	return nil
}
