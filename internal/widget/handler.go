// Package widget serves the browser chat widget. Each browser tab that
// opens the widget socket gets its own chat client, identity and relay
// channel; the client's view updates travel back to the tab as htmx
// out-of-band fragments.
package widget

import (
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/relaychat/internal/channel"
	"github.com/nfrund/relaychat/internal/middleware"
	"github.com/nfrund/relaychat/internal/pubsub"
	"github.com/nfrund/relaychat/internal/rendering"
)

// DefaultTitle is the page heading when none is configured.
const DefaultTitle = "Relay Chat"

// Bus carries rendered fragments from a tab's chat client to its socket.
type Bus interface {
	pubsub.Publisher
	pubsub.Subscriber
}

// Options configures a Handler.
type Options struct {
	Connector    channel.Connector
	Renderer     rendering.Renderer
	Bus          Bus
	// Hub tracks open sessions. When nil the handler starts its own.
	Hub          *Hub
	SocketPath   string
	Title        string
	RawHTML      bool
	DedupeWindow int
	WriteTimeout time.Duration
}

// Handler serves the widget page and its per-tab sockets.
type Handler struct {
	connector    channel.Connector
	renderer     rendering.Renderer
	bus          Bus
	hub          *Hub
	socketPath   string
	title        string
	raw          bool
	dedupeWindow int
	writeTimeout time.Duration
}

// NewHandler creates a widget handler.
func NewHandler(opts Options) *Handler {
	if opts.SocketPath == "" {
		opts.SocketPath = "/ws"
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.Hub == nil {
		opts.Hub = NewHub()
		go opts.Hub.Run()
	}
	return &Handler{
		connector:    opts.Connector,
		renderer:     opts.Renderer,
		bus:          opts.Bus,
		hub:          opts.Hub,
		socketPath:   opts.SocketPath,
		title:        opts.Title,
		raw:          opts.RawHTML,
		dedupeWindow: opts.DedupeWindow,
		writeTimeout: opts.WriteTimeout,
	}
}

// Sessions reports how many tabs are connected.
func (h *Handler) Sessions() int {
	return h.hub.Len()
}

// Shutdown closes every connected tab.
func (h *Handler) Shutdown() {
	h.hub.Shutdown()
}

// Page renders the widget.
func (h *Handler) Page(c echo.Context) error {
	return h.renderer.RenderPage(c, http.StatusOK, Page(h.title, h.socketPath))
}

// Socket upgrades the request and runs a chat session for the tab until
// either side closes the socket.
func (h *Handler) Socket(c echo.Context) error {
	logger := middleware.FromContext(c.Request().Context())

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true, // The widget is served same-origin; relays are public.
	})
	if err != nil {
		// Accept has already written the error response.
		logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return nil
	}

	s := &session{
		id:           uuid.NewString(),
		conn:         conn,
		handler:      h,
		writeTimeout: h.writeTimeout,
	}
	s.logger = logger.With("tab_id", s.id)
	s.run(c.Request().Context())
	return nil
}
