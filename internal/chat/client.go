// Package chat implements the chat client: it keeps one channel to the
// relay, asks for history whenever the channel becomes ready, renders
// inbound messages into a message list and posts the compose box's text.
//
// All view and channel work happens on a single event-loop goroutine.
// Channel callbacks and Post only enqueue requests into its mailbox, so
// handlers run to completion one at a time and messages render in the
// order their frames arrived.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nfrund/relaychat/internal/channel"
	"github.com/nfrund/relaychat/internal/identity"
	"github.com/nfrund/relaychat/internal/protocol"
	"github.com/nfrund/relaychat/internal/view"
)

const mailboxSize = 64

type clientState int

const (
	stateNew clientState = iota
	stateStarted
	stateClosed
)

// Dependencies holds the collaborators a Client drives.
type Dependencies struct {
	Connector channel.Connector
	List      view.MessageList
	Compose   view.ComposeBox
}

// Option configures a Client.
type Option func(*Client)

// WithIdentity fixes the display name instead of generating one.
func WithIdentity(id identity.Identity) Option {
	return func(c *Client) { c.identity = id }
}

// WithDedupeWindow suppresses inbound messages identical to one of the
// last n rendered. Zero disables suppression.
func WithDedupeWindow(n int) Option {
	return func(c *Client) {
		if n <= 0 {
			c.dedupe = nil
			return
		}
		f, err := newEchoFilter(n)
		if err != nil {
			slog.Error("Echo suppression disabled", "window", n, "error", err)
			return
		}
		c.dedupe = f
	}
}

// WithErrorHandler receives errors from frame processing and history
// requests. It runs on the event loop and must not call back into the client.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Client) { c.onError = fn }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client is one chat session: one identity, one relay channel, one view.
type Client struct {
	identity  identity.Identity
	connector channel.Connector
	list      view.MessageList
	compose   view.ComposeBox
	dedupe    *echoFilter
	onError   func(error)
	logger    *slog.Logger

	mailbox chan interface{}
	done    chan struct{}

	mu    sync.Mutex
	state clientState
	ch    channel.Channel
	stop  context.CancelFunc
}

// New creates a client with a freshly generated identity.
func New(deps Dependencies, opts ...Option) *Client {
	c := &Client{
		identity:  identity.New(),
		connector: deps.Connector,
		list:      deps.List,
		compose:   deps.Compose,
		logger:    slog.Default(),
		mailbox:   make(chan interface{}, mailboxSize),
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("identity", c.identity.String())
	return c
}

// Identity returns the client's display name.
func (c *Client) Identity() identity.Identity {
	return c.identity
}

// Start acquires the relay channel and starts the event loop. It does not
// wait for the channel to become ready. Cancelling ctx stops the client.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateStarted:
		return ErrAlreadyStarted
	case stateClosed:
		return ErrClosed
	}

	loopCtx, cancel := context.WithCancel(ctx)
	ch, err := c.connector.Connect(loopCtx, channel.Handlers{
		OnReady:   c.onReady,
		OnMessage: c.onMessage,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("connect to relay: %w", err)
	}

	c.ch = ch
	c.stop = cancel
	c.state = stateStarted
	go c.run(loopCtx, ch)

	c.logger.Info("Chat client started")
	return nil
}

// Post sends the compose box's text as a message and clears the box. Blank
// text is ignored. When the send fails the text stays in the box.
func (c *Client) Post(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case stateNew:
		return ErrNotStarted
	case stateClosed:
		return ErrClosed
	}

	req := &postReq{ctx: ctx, reply: make(chan error, 1)}
	if err := c.enqueue(ctx, req); err != nil {
		return err
	}

	select {
	case err := <-req.reply:
		return err
	case <-c.done:
		select {
		case err := <-req.reply:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the event loop and closes the channel. It is safe to call
// more than once and before Start.
func (c *Client) Close() error {
	c.mu.Lock()
	prev := c.state
	c.state = stateClosed
	ch, stop := c.ch, c.stop
	c.mu.Unlock()

	if prev != stateStarted {
		return nil
	}

	stop()
	<-c.done
	c.logger.Info("Chat client closed")
	return ch.Close()
}

// Done is closed once the event loop has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) onReady() {
	_ = c.enqueue(context.Background(), readyEvent{})
}

func (c *Client) onMessage(frame []byte) {
	_ = c.enqueue(context.Background(), frameEvent{frame: frame})
}

func (c *Client) enqueue(ctx context.Context, ev interface{}) error {
	select {
	case c.mailbox <- ev:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the event loop. It owns the view, the compose box and the channel.
func (c *Client) run(ctx context.Context, ch channel.Channel) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.mailbox:
			switch e := ev.(type) {
			case readyEvent:
				if err := c.requestHistory(ctx, ch); err != nil {
					c.report(err)
				}
			case frameEvent:
				if err := c.handleFrame(ctx, e.frame); err != nil {
					c.report(err)
				}
			case *postReq:
				e.reply <- c.post(e.ctx, ch)
			}
		}
	}
}

func (c *Client) requestHistory(ctx context.Context, ch channel.Channel) error {
	frame, err := protocol.Encode(protocol.GetRecentMessages())
	if err != nil {
		return err
	}
	if err := ch.Send(ctx, frame); err != nil {
		return fmt.Errorf("request history: %w", err)
	}
	c.logger.Debug("Requested recent messages")
	return nil
}

// handleFrame renders every message of one inbound frame, in order. A
// malformed frame renders nothing.
func (c *Client) handleFrame(ctx context.Context, frame []byte) error {
	payload, err := protocol.Decode(frame)
	if err != nil {
		return err
	}

	for _, m := range payload.Messages {
		if c.dedupe != nil && c.dedupe.seen(m) {
			c.logger.Debug("Suppressed repeated message", "username", m.Username)
			continue
		}

		if c.list.ShowsPlaceholder() {
			if err := c.list.Clear(ctx); err != nil {
				return fmt.Errorf("clear placeholder: %w", err)
			}
		}

		entry := view.Entry{
			Username: m.Username,
			Content:  m.Content,
			Self:     m.Username == c.identity.String(),
		}
		if err := c.list.Append(ctx, entry); err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		if err := c.list.ScrollToLast(ctx); err != nil {
			return fmt.Errorf("scroll to last message: %w", err)
		}
	}
	return nil
}

func (c *Client) post(ctx context.Context, ch channel.Channel) error {
	content := c.compose.Value()
	if strings.TrimSpace(content) == "" {
		return nil
	}

	frame, err := protocol.Encode(protocol.SendMessage(c.identity.String(), content))
	if err != nil {
		return err
	}
	if err := ch.Send(ctx, frame); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if err := c.compose.Clear(ctx); err != nil {
		return fmt.Errorf("clear compose box: %w", err)
	}
	return nil
}

func (c *Client) report(err error) {
	c.logger.Error("Chat event failed", "error", err)
	if c.onError != nil {
		c.onError(err)
	}
}
