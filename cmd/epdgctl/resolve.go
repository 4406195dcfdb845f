package main

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/datawire-oss/epdgtunnel/internal/carrierconfig"
	"github.com/datawire-oss/epdgtunnel/internal/dnsclient"
	"github.com/datawire-oss/epdgtunnel/internal/exclusion"
	"github.com/datawire-oss/epdgtunnel/internal/fqdn"
	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
	"github.com/datawire-oss/epdgtunnel/internal/netprobe"
	"github.com/datawire-oss/epdgtunnel/internal/pco"
	"github.com/datawire-oss/epdgtunnel/internal/selector"
	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

// staticLinkProperties is an always-up, always-reachable dual-stack network,
// standing in for a live LinkProperties collaborator so this command can
// exercise the selector pipeline without a running network stack.
type staticLinkProperties struct {
	addrs []net.IP
}

func (s staticLinkProperties) LocalAddresses() []net.IP { return s.addrs }
func (s staticLinkProperties) IsReachable(net.IP) bool  { return true }

type printingCallback struct {
	done chan struct{}
}

func (c *printingCallback) OnServerListChanged(txID string, list []net.IP) {
	fmt.Printf("txId=%s resolved %d address(es):\n", txID, len(list))
	for _, ip := range list {
		fmt.Printf("  %s\n", ip)
	}
	close(c.done)
}

func (c *printingCallback) OnError(txID string, err *ikeerr.Error) {
	fmt.Printf("txId=%s resolution failed: %s\n", txID, err.Kind())
	close(c.done)
}

func newResolveCommand(defaults EnvDefaults) *cobra.Command {
	var (
		mccMnc    string
		roaming   bool
		emergency bool
		filter    string
		order     string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "run the ePDG candidate-address pipeline once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := carrierconfig.New()
			if flagConfigPath != "" {
				loaded, err := carrierconfig.LoadFile(flagConfigPath)
				if err != nil {
					return fmt.Errorf("loading carrier config: %w", err)
				}
				cfg = loaded
			}

			resolver := defaults.DNSResolver
			dns := dnsclient.New(resolver, time.Duration(cfg.Int(carrierconfig.KeyDNSTimeoutMsec))*time.Millisecond)
			pcoStore := pco.NewStore(cfg.Int(carrierconfig.KeyPcoIDIPv4), cfg.Int(carrierconfig.KeyPcoIDIPv6))
			sel := selector.New(cfg, pcoStore, exclusion.New(), dns)

			probe := netprobe.New(staticLinkProperties{addrs: []net.IP{
				net.ParseIP("192.0.2.1"),
				net.ParseIP("2001:db8::1"),
			}})

			var rctx selector.ResolveContext
			if mccMnc != "" {
				parts := strings.SplitN(mccMnc, "-", 2)
				if len(parts) == 2 {
					rctx.PLMN = fqdn.PLMNInput{HPLMN: &fqdn.PLMN{MCC: parts[0], MNC: parts[1]}}
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cb := &printingCallback{done: make(chan struct{})}
			sel.GetValidatedServerList(ctx, uuid.NewString(), parseFilter(filter), parseOrder(order), roaming, emergency, selector.PurposeSetup, probe, rctx, cb)

			select {
			case <-cb.done:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mccMnc, "plmn", "", "home PLMN as MCC-MNC, e.g. 310-410")
	cmd.Flags().BoolVar(&roaming, "roaming", false, "resolve as a roaming device")
	cmd.Flags().BoolVar(&emergency, "emergency", false, "resolve for an emergency PDN")
	cmd.Flags().StringVar(&filter, "filter", "both", "address family: ipv4, ipv6, or both")
	cmd.Flags().StringVar(&order, "order", "system", "candidate order: ipv4-preferred, ipv6-preferred, or system")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "maximum time to wait for resolution")

	return cmd
}

func parseFilter(s string) epdgapi.AddressFilter {
	switch s {
	case "ipv4":
		return epdgapi.FilterIPv4
	case "ipv6":
		return epdgapi.FilterIPv6
	default:
		return epdgapi.FilterIPv4v6
	}
}

func parseOrder(s string) epdgapi.AddressOrder {
	switch s {
	case "ipv4-preferred":
		return epdgapi.OrderIPv4Preferred
	case "ipv6-preferred":
		return epdgapi.OrderIPv6Preferred
	default:
		return epdgapi.OrderSystem
	}
}
