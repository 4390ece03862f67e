package widget

import (
	"log/slog"

	"github.com/coder/websocket"
)

// Hub tracks the open tab sessions. http.Server.Shutdown does not wait for
// hijacked connections, so the server asks the hub to close them.
type Hub struct {
	sessions map[*session]bool

	register   chan *session
	unregister chan *session
	count      chan chan int
	shutdown   chan struct{}
	done       chan struct{}
}

// NewHub creates a hub. Run must be started before sessions connect.
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[*session]bool),
		register:   make(chan *session),
		unregister: make(chan *session),
		count:      make(chan chan int),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until Shutdown. It must be run in a
// separate goroutine.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case s := <-h.register:
			h.sessions[s] = true
			slog.Debug("Tab session registered", "tab_id", s.id, "total_sessions", len(h.sessions))

		case s := <-h.unregister:
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				slog.Debug("Tab session unregistered", "tab_id", s.id, "total_sessions", len(h.sessions))
			}

		case reply := <-h.count:
			reply <- len(h.sessions)

		case <-h.shutdown:
			slog.Info("Closing tab sessions", "total_sessions", len(h.sessions))
			for s := range h.sessions {
				go s.conn.Close(websocket.StatusGoingAway, "server shutting down")
			}
			return
		}
	}
}

// Len reports the number of open sessions.
func (h *Hub) Len() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Shutdown closes every open session and stops the hub. Sessions that
// connect afterwards are refused.
func (h *Hub) Shutdown() {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.shutdown <- struct{}{}:
	case <-h.done:
	}
	<-h.done
}

// add registers s. It reports false once the hub has shut down.
func (h *Hub) add(s *session) bool {
	select {
	case h.register <- s:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(s *session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}
