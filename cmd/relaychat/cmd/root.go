package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nfrund/relaychat/internal/channel"
	"github.com/nfrund/relaychat/internal/config"
	"github.com/nfrund/relaychat/internal/logging"
)

var endpointFlag string

var rootCmd = &cobra.Command{
	Use:   "relaychat",
	Short: "Chat client for a websocket message relay",
	Long: `relaychat connects to a chat relay over a websocket, shows the relay's
recent messages and everything posted after them, and sends what you type.

Available commands:
  connect    Chat from the terminal
  serve      Serve the browser chat widget
  version    Print the version

Settings come from RELAYCHAT_* environment variables or a .env file.
Use "relaychat [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&endpointFlag, "endpoint", "e", "",
		"relay websocket URL (overrides RELAYCHAT_ENDPOINT)")
}

// loadConfig loads configuration with the command-line overrides applied
// and sets up logging to logOut.
func loadConfig(logOut io.Writer, overrides ...func(*config.Config)) (*config.Config, error) {
	overrides = append([]func(*config.Config){config.WithEndpoint(endpointFlag)}, overrides...)
	cfg, err := config.New(overrides...)
	if err != nil {
		return nil, err
	}
	logging.NewWithWriter(logOut, cfg.LogFormat, cfg.LogLevel)
	return cfg, nil
}

func newConnector(cfg *config.Config) *channel.WebsocketConnector {
	return channel.NewWebsocketConnector(cfg.Endpoint,
		channel.WithBackoff(cfg.ReconnectInitial, cfg.ReconnectMax),
		channel.WithWriteTimeout(cfg.WriteTimeout),
	)
}
