package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/nfrund/relaychat/internal/protocol"
)

// Relay is an in-process stand-in for the chat relay. It records every
// frame it receives and, in echo mode, answers actions the way the real
// relay does: history on getRecentMessages, a broadcast on sendMessage.
type Relay struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	echo     bool

	mu       sync.Mutex
	conns    map[*relayConn]struct{}
	history  []protocol.Message
	received chan string
	accepted chan struct{}
}

type relayConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *relayConn) write(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// NewRelay starts a recording relay. With echo set it also answers actions.
func NewRelay(t *testing.T, echo bool) *Relay {
	t.Helper()

	r := &Relay{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		echo:     echo,
		conns:    make(map[*relayConn]struct{}),
		received: make(chan string, 256),
		accepted: make(chan struct{}, 64),
	}
	r.server = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.Close)
	return r
}

// URL is the relay's ws:// endpoint.
func (r *Relay) URL() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http")
}

// Received yields every frame clients sent, in arrival order.
func (r *Relay) Received() <-chan string {
	return r.received
}

// Accepted yields once per accepted connection.
func (r *Relay) Accepted() <-chan struct{} {
	return r.accepted
}

// SetHistory replaces the messages returned for getRecentMessages.
func (r *Relay) SetHistory(msgs ...protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append([]protocol.Message(nil), msgs...)
}

// Broadcast writes a raw frame to every connected client.
func (r *Relay) Broadcast(frame string) {
	for _, c := range r.snapshot() {
		_ = c.write([]byte(frame))
	}
}

// DropAll severs every client connection without a close handshake.
func (r *Relay) DropAll() {
	for _, c := range r.snapshot() {
		_ = c.conn.Close()
	}
}

// Close drops all clients and stops the server.
func (r *Relay) Close() {
	r.DropAll()
	r.server.Close()
}

func (r *Relay) snapshot() []*relayConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*relayConn, 0, len(r.conns))
	for c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *Relay) serve(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	c := &relayConn{conn: conn}

	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
	select {
	case r.accepted <- struct{}{}:
	default:
	}

	defer func() {
		r.mu.Lock()
		delete(r.conns, c)
		r.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		r.received <- string(frame)
		if r.echo {
			r.answer(c, frame)
		}
	}
}

func (r *Relay) answer(c *relayConn, frame []byte) {
	var action protocol.Action
	if err := json.Unmarshal(frame, &action); err != nil {
		return
	}

	switch action.Action {
	case protocol.ActionGetRecentMessages:
		r.mu.Lock()
		payload := protocol.Payload{Messages: append([]protocol.Message{}, r.history...)}
		r.mu.Unlock()
		out, _ := json.Marshal(payload)
		_ = c.write(out)

	case protocol.ActionSendMessage:
		msg := protocol.Message{Username: action.Username, Content: action.Content}
		r.mu.Lock()
		r.history = append(r.history, msg)
		r.mu.Unlock()
		out, _ := json.Marshal(protocol.Payload{Messages: []protocol.Message{msg}})
		r.Broadcast(string(out))
	}
}
