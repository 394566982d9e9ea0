package command

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var asHex bool
	cmd := &cobra.Command{
		Use:   "send <payload>",
		Short: "Send one message to the room and exit",
		Example: `  gorelay-client send '{"text":"hello"}'
  gorelay-client send --hex 0a0b0c`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := []byte(args[0])
			if asHex {
				decoded, err := hex.DecodeString(args[0])
				if err != nil {
					return fmt.Errorf("decode hex payload: %w", err)
				}
				payload = decoded
			}

			conn, err := opts.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			if asHex {
				return conn.SendBinary(payload)
			}
			return conn.Send(payload)
		},
	}
	cmd.Flags().BoolVar(&asHex, "hex", false, "payload is hex; send it as a binary frame")
	return cmd
}
