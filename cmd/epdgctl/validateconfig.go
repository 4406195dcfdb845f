package main

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/datawire-oss/epdgtunnel/internal/carrierconfig"
)

func newValidateConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "load a carrier config file and report every value it rejects",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagConfigPath == "" {
				return fmt.Errorf("validate-config: --config is required")
			}
			cfg, err := carrierconfig.LoadFile(flagConfigPath)
			if err != nil {
				return fmt.Errorf("loading carrier config: %w", err)
			}
			if errs := validateConfig(cfg); errs != nil {
				fmt.Print(errs)
				return fmt.Errorf("carrier config has %d problem(s)", len(errs.Errors))
			}
			fmt.Println("carrier config is valid")
			return nil
		},
	}
}

// validateConfig re-checks every clamp-on-read rule the Config type applies
// silently, surfacing each violation instead of falling back to a default.
func validateConfig(cfg *carrierconfig.Config) *multierror.Error {
	var result *multierror.Error

	if natt := cfg.Int(carrierconfig.KeyNattKeepAliveTimerSec); natt < 0 || natt > 3600 {
		result = multierror.Append(result, fmt.Errorf("%s: %d is out of range [0, 3600]", carrierconfig.KeyNattKeepAliveTimerSec, natt))
	}

	if retrans := cfg.IntArray(carrierconfig.KeyRetransmitTimerMsec); len(retrans) != 6 {
		result = multierror.Append(result, fmt.Errorf("%s: expected 6 values, got %d", carrierconfig.KeyRetransmitTimerMsec, len(retrans)))
	}

	validSources := map[string]bool{"STATIC": true, "PLMN": true, "PCO": true, "CELLULAR_LOC": true}
	for _, s := range cfg.StringArray(carrierconfig.KeyAddressSourcePriority) {
		if !validSources[s] {
			result = multierror.Append(result, fmt.Errorf("%s: unknown source %q", carrierconfig.KeyAddressSourcePriority, s))
		}
	}

	validPlmnSources := map[string]bool{"RPLMN": true, "HPLMN": true, "EHPLMN_FIRST": true, "EHPLMN_ALL": true}
	for _, s := range cfg.StringArray(carrierconfig.KeyPlmnPriority) {
		if !validPlmnSources[s] {
			result = multierror.Append(result, fmt.Errorf("%s: unknown priority %q", carrierconfig.KeyPlmnPriority, s))
		}
	}

	if pref := cfg.Int(carrierconfig.KeyAddressIPTypePreference); pref < int(carrierconfig.PrefIPv4Only) || pref > int(carrierconfig.PrefSystem) {
		result = multierror.Append(result, fmt.Errorf("%s: %d is not a recognized preference", carrierconfig.KeyAddressIPTypePreference, pref))
	}

	return result
}
