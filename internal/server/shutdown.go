package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const shutdownTimeout = 10 * time.Second

// shutdown stops accepting requests, waits for in-flight ones and closes
// the fragment bus so open tab sessions wind down.
func (s *Server) shutdown() error {
	slog.Info("Shutting down widget server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.E.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	s.widget.Shutdown()
	if err := s.bus.Close(); err != nil {
		return fmt.Errorf("close fragment bus: %w", err)
	}
	return nil
}
