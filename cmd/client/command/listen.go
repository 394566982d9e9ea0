package command

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/gorelay/internal/relayclient"
)

func newListenCmd(opts *rootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print messages relayed from the room",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 0 {
				return fmt.Errorf("--count must not be negative")
			}
			conn, err := opts.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			return receive(conn, cmd.OutOrStdout(), count)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "exit after this many messages (0 = until the connection closes)")
	return cmd
}

// receive prints inbound frames until count have been printed or the relay
// closes the connection. A count of zero means no limit.
func receive(conn *relayclient.Conn, w io.Writer, count int) error {
	for received := 0; count == 0 || received < count; received++ {
		msg, err := conn.Receive()
		if err != nil {
			if relayclient.IsClosed(err) {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		printMessage(w, msg)
	}
	return nil
}

var (
	peerColor   = color.New(color.FgCyan)
	binaryColor = color.New(color.FgMagenta)
	noticeColor = color.New(color.FgYellow)
)

func printMessage(w io.Writer, msg relayclient.Message) {
	if msg.Binary {
		binaryColor.Fprintf(w, "[binary %d bytes] %x\n", len(msg.Data), msg.Data)
		return
	}
	peerColor.Fprintf(w, "%s\n", msg.Data)
}
