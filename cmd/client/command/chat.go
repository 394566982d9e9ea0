package command

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/gorelay/internal/relayclient"
)

const quitCommand = "/quit"

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Join the room interactively",
		Long:  `Each line typed is sent to the room as a text message; messages from others are printed as they arrive. Type /quit or press Ctrl+C to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			out := cmd.OutOrStdout()
			noticeColor.Fprintf(out, "connected to %s (type %s to leave)\n", opts.url, quitCommand)

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)
			defer signal.Stop(interrupt)

			received := make(chan error, 1)
			go func() {
				received <- receive(conn, out, 0)
			}()

			sent := make(chan error, 1)
			go func() {
				sent <- sendLines(conn, cmd.InOrStdin())
			}()

			select {
			case <-interrupt:
				return nil
			case err := <-sent:
				return err
			case err := <-received:
				if err == nil {
					noticeColor.Fprintln(out, "relay closed the connection")
				}
				return err
			}
		},
	}
}

// sendLines sends each input line as a text frame until EOF or /quit. Empty
// lines are skipped.
func sendLines(conn *relayclient.Conn, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == quitCommand {
			return nil
		}
		if line == "" {
			continue
		}
		if err := conn.Send([]byte(line)); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
	return scanner.Err()
}
