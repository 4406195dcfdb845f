package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
)

func newDecodeBackoffCommand() *cobra.Command {
	var code int

	cmd := &cobra.Command{
		Use:   "decode-backoff <hex-notify-payload>",
		Short: "decode a 3GPP IKE_PROTOCOL_EXCEPTION backoff-timer notify payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("decoding payload: %w", err)
			}
			e := ikeerr.NewProtocolException(code, data)
			b := e.Backoff()
			if b == nil {
				fmt.Println("no backoff payload decoded (empty input)")
				return nil
			}
			secs, ok := b.Seconds()
			if !ok {
				fmt.Println("backoff timer deactivated")
				return nil
			}
			fmt.Printf("backoff: %d second(s)\n", secs)
			return nil
		},
	}

	cmd.Flags().IntVar(&code, "code", 0, "IKE_PROTOCOL_EXCEPTION error code accompanying the payload")

	return cmd
}
