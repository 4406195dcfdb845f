// Command epdgctl is an operator-facing tool for the ePDG selection
// subsystem: it exercises address resolution, carrier-config validation,
// and config hot-reload watching without needing a live IKE engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/datawire-oss/epdgtunnel/internal/ilog"
)

var (
	flagConfigPath string
	flagLogLevel   string
)

func main() {
	root := getRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getRootCommand() *cobra.Command {
	defaults, err := loadEnvDefaults(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "epdgctl: reading environment defaults: %v\n", err)
		defaults = EnvDefaults{LogLevel: "info", DNSResolver: "8.8.8.8:53"}
	}

	root := &cobra.Command{
		Use:          "epdgctl",
		Short:        "ePDG selector and carrier-config operator tool",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Installs the formatter and level as dlog's fallback logger.
			ilog.WithLevel(cmd.Context(), flagLogLevel)
		},
	}
	root.PersistentFlags().StringVar(&flagConfigPath, "config", defaults.ConfigPath, "carrier config YAML path")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", defaults.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(newResolveCommand(defaults))
	root.AddCommand(newValidateConfigCommand())
	root.AddCommand(newWatchConfigCommand())
	root.AddCommand(newDecodeBackoffCommand())

	return root
}
