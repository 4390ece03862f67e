package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nfrund/relaychat/internal/config"
	"github.com/nfrund/relaychat/internal/server"
)

var listenFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser chat widget",
	Long: `serve starts an HTTP server for the chat widget. Every browser tab that
opens the page gets its own identity and its own connection to the relay.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.OutOrStdout(), config.WithListenAddr(listenFlag))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.New(cfg, newConnector(cfg)).Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&listenFlag, "listen", "l", "",
		"address to serve the widget on (overrides RELAYCHAT_LISTEN_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
