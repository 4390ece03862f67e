package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	g "maragu.dev/gomponents"

	"github.com/nfrund/relaychat/internal/channel"
	"github.com/nfrund/relaychat/internal/chat"
	"github.com/nfrund/relaychat/internal/protocol"
	"github.com/nfrund/relaychat/internal/pubsub"
	"github.com/nfrund/relaychat/internal/view"
)

// postFrame is what the htmx ws-send form submits. Only the compose
// field matters; htmx also sends a HEADERS object.
type postFrame struct {
	Text *string `json:"post-bar"`
}

// session is one browser tab's socket and chat client.
type session struct {
	id           string
	conn         *websocket.Conn
	handler      *Handler
	logger       *slog.Logger
	writeTimeout time.Duration
}

func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer s.conn.CloseNow()

	if !s.handler.hub.add(s) {
		s.conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer s.handler.hub.remove(s)

	topic := pubsub.TabTopic(s.id)
	if err := s.handler.bus.Subscribe(ctx, topic, s.deliver); err != nil {
		s.logger.Error("Failed to subscribe to tab topic", "topic", topic, "error", err)
		s.conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}

	// A reconnecting tab still shows the previous session's messages.
	if err := s.push(ctx, view.ResetFragment()); err != nil {
		s.logger.Error("Failed to reset tab", "error", err)
		return
	}

	sink := view.SinkFunc(s.publish)
	compose := view.NewFragmentCompose(s.handler.renderer, sink)
	client := chat.New(chat.Dependencies{
		Connector: s.handler.connector,
		List:      view.NewFragmentList(s.handler.renderer, sink, s.handler.raw),
		Compose:   compose,
	},
		chat.WithLogger(s.logger),
		chat.WithDedupeWindow(s.handler.dedupeWindow),
		chat.WithErrorHandler(func(err error) { s.notify(ctx, err) }),
	)

	if err := client.Start(ctx); err != nil {
		s.logger.Error("Failed to start chat client", "error", err)
		s.notify(ctx, err)
		s.conn.Close(websocket.StatusInternalError, "relay unavailable")
		return
	}
	defer func() {
		// Stop the subscription first so a publish waiting on this tab's
		// socket cannot hold up the client's shutdown.
		cancel()
		if err := client.Close(); err != nil {
			s.logger.Warn("Failed to close chat client", "error", err)
		}
	}()

	s.logger.Info("Tab connected", "identity", client.Identity().String())
	s.readPump(ctx, client, compose)
}

// readPump turns the tab's form submissions into posts until the socket ends.
func (s *session) readPump(ctx context.Context, client *chat.Client, compose *view.FragmentCompose) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				s.logger.Info("WebSocket closed normally by client")
			default:
				if !errors.Is(err, context.Canceled) {
					s.logger.Warn("WebSocket read error", "error", err)
				}
			}
			return
		}

		var frame postFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Text == nil {
			s.logger.Debug("Ignoring unrecognised tab frame", "size", len(data))
			continue
		}

		compose.Set(*frame.Text)
		if err := client.Post(ctx); err != nil {
			s.logger.Warn("Failed to post message", "error", err)
			s.notify(ctx, err)
			continue
		}
		s.clearNotice(ctx)
	}
}

// deliver writes a fragment from the bus to the tab's socket.
func (s *session) deliver(ctx context.Context, msg pubsub.Message) error {
	wctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	return s.conn.Write(wctx, websocket.MessageText, msg.Payload)
}

func (s *session) publish(ctx context.Context, fragment []byte) error {
	return s.handler.bus.Publish(ctx, pubsub.Message{
		Topic:   pubsub.TabTopic(s.id),
		TabID:   s.id,
		Payload: fragment,
	})
}

func (s *session) push(ctx context.Context, node g.Node) error {
	out, err := s.handler.renderer.RenderComponent(ctx, node)
	if err != nil {
		return fmt.Errorf("render fragment: %w", err)
	}
	return s.publish(ctx, out)
}

// notify shows err to the user in the page's notice area.
func (s *session) notify(ctx context.Context, err error) {
	if err := s.push(ctx, view.NoticeFragment(noticeText(err))); err != nil {
		s.logger.Debug("Failed to push notice", "error", err)
	}
}

func (s *session) clearNotice(ctx context.Context) {
	if err := s.push(ctx, view.NoticeFragment("")); err != nil {
		s.logger.Debug("Failed to clear notice", "error", err)
	}
}

func noticeText(err error) string {
	switch {
	case errors.Is(err, channel.ErrNotReady):
		return "Not connected to the chat relay yet. Try again in a moment."
	case errors.Is(err, protocol.ErrMalformedFrame):
		return "Received a message that could not be displayed."
	case errors.Is(err, chat.ErrClosed), errors.Is(err, channel.ErrClosed):
		return "The chat session has ended. Reload the page to reconnect."
	default:
		return "Chat relay error: " + err.Error()
	}
}
