package testutils

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nfrund/relaychat/internal/config"
)

// Timeout is how long helpers wait for asynchronous events.
const Timeout = 3 * time.Second

// ConfigForTests returns a valid config pointing at endpoint. It goes
// through the environment like the real loader does.
func ConfigForTests(t *testing.T, endpoint string) *config.Config {
	t.Helper()

	t.Setenv("RELAYCHAT_ENDPOINT", endpoint)
	t.Setenv("RELAYCHAT_RECONNECT_INITIAL", "20ms")
	t.Setenv("RELAYCHAT_RECONNECT_MAX", "100ms")
	t.Setenv("RELAYCHAT_WRITE_TIMEOUT", "2s")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("failed to load test config: %v", err)
	}
	return cfg
}

// SilenceLogs discards slog output for the duration of the test.
func SilenceLogs(t *testing.T) {
	t.Helper()

	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
}
