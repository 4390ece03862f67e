package server

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/nfrund/relaychat/internal/channel"
	"github.com/nfrund/relaychat/internal/config"
	"github.com/nfrund/relaychat/internal/middleware"
	"github.com/nfrund/relaychat/internal/pubsub"
	"github.com/nfrund/relaychat/internal/rendering"
	"github.com/nfrund/relaychat/internal/widget"
)

// Server holds the dependencies for the widget HTTP server.
type Server struct {
	E      *echo.Echo
	Cfg    *config.Config
	bus    *pubsub.WatermillBridge
	widget *widget.Handler
}

// New creates a server whose tabs reach the relay through connector.
func New(cfg *config.Config, connector channel.Connector) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	setupErrorHandling(e)

	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())

	renderer := rendering.NewUniversalRenderer()

	bus := pubsub.NewWatermillBridge()

	s := &Server{
		E:   e,
		Cfg: cfg,
		bus: bus,
		widget: widget.NewHandler(widget.Options{
			Connector:    connector,
			Renderer:     renderer,
			Bus:          bus,
			RawHTML:      cfg.RawHTML,
			DedupeWindow: cfg.DedupeWindow,
			WriteTimeout: cfg.WriteTimeout,
		}),
	}
	s.RegisterRoutes()
	return s
}
