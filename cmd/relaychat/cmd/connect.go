package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nfrund/relaychat/internal/channel"
	"github.com/nfrund/relaychat/internal/chat"
	"github.com/nfrund/relaychat/internal/config"
	"github.com/nfrund/relaychat/internal/view"
)

var transcriptFlag string

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Chat from the terminal",
	Long: `connect joins the relay from the terminal. Each line typed is posted as a
message; messages from the relay are printed as they arrive. End input
(Ctrl-D) or interrupt to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.ErrOrStderr(), config.WithTranscript(transcriptFlag))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runTerminal(ctx, cfg, newConnector(cfg), afero.NewOsFs(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	connectCmd.Flags().StringVarP(&transcriptFlag, "transcript", "t", "",
		"also append messages to this file (overrides RELAYCHAT_TRANSCRIPT)")
	rootCmd.AddCommand(connectCmd)
}

// runTerminal runs one terminal chat session until in is exhausted or ctx
// is done.
func runTerminal(ctx context.Context, cfg *config.Config, connector channel.Connector, fs afero.Fs, in io.Reader, out io.Writer) error {
	terminal := view.NewTerminalList(out, cfg.RawTerminal)
	if err := terminal.ShowPlaceholder(); err != nil {
		return err
	}

	var list view.MessageList = terminal
	if cfg.Transcript != "" {
		transcript, err := view.NewTranscript(terminal, fs, cfg.Transcript)
		if err != nil {
			return err
		}
		defer transcript.Close()
		list = transcript
	}

	compose := view.NewCompose()
	client := chat.New(chat.Dependencies{
		Connector: connector,
		List:      list,
		Compose:   compose,
	}, chat.WithDedupeWindow(cfg.DedupeWindow))

	// Printed before Start; from then on only the client writes to out.
	fmt.Fprintf(out, "Chatting as %s. Type a message and press Enter.\n", client.Identity())

	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			compose.Set(line)
			if err := client.Post(ctx); err != nil {
				slog.Warn("Message not sent", "error", err)
			}
		}
	}
}
