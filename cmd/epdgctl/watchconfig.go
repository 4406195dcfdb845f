package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/datawire-oss/epdgtunnel/internal/carrierconfig"
)

func newWatchConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch-config",
		Short: "watch a carrier config file and reload it on every change until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagConfigPath == "" {
				return fmt.Errorf("watch-config: --config is required")
			}
			cfg, err := carrierconfig.LoadFile(flagConfigPath)
			if err != nil {
				return fmt.Errorf("loading carrier config: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return carrierconfig.Watch(ctx, flagConfigPath, cfg)
		},
	}
}
