package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/relaychat/internal/middleware"
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	s.E.GET("/", s.widget.Page)
	s.E.GET("/ws", s.widget.Socket, middleware.RateLimiter(middleware.DefaultUpgradeRate))

	s.E.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "PONG!")
	})
}
