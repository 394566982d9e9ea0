package command

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/gorelay/internal/relayclient"
)

type rootOptions struct {
	url    string
	origin string
}

func (o *rootOptions) dial(ctx context.Context) (*relayclient.Conn, error) {
	return relayclient.Dial(ctx, o.url, o.origin)
}

// newRootCmd builds the command tree. Each call returns fresh commands and
// flag state.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "gorelay-client",
		Short: "gorelay-client - talk to a gorelay room from the terminal",
		Long: `gorelay-client connects to a gorelay server. Every connection joins the
same room; whatever you send is delivered to everyone else connected.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.url, "url", "ws://localhost:3000/ws", "relay WebSocket URL")
	cmd.PersistentFlags().StringVar(&opts.origin, "origin", "", "Origin header to send (needed when the server restricts origins)")

	cmd.AddCommand(newSendCmd(opts), newListenCmd(opts), newChatCmd(opts))
	return cmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
