package selector

import (
	"context"
	"net"
	"sync"

	"github.com/datawire/dlib/dlog"

	"github.com/datawire-oss/epdgtunnel/internal/dnsclient"
	"github.com/datawire-oss/epdgtunnel/internal/fqdn"
	"github.com/datawire-oss/epdgtunnel/internal/pco"
	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

// ResolveContext bundles the caller-supplied radio/SIM context a single
// GetValidatedServerList call needs. It is per-request, unlike the Selector
// itself which is long-lived per APN.
type ResolveContext struct {
	PLMN  fqdn.PLMNInput
	Cells []fqdn.Cell
}

// resolveFQDNsOrdered resolves each FQDN for both address families and
// returns addresses concatenated in the caller's FQDN order, never in
// goroutine-completion order.
func resolveFQDNsOrdered(ctx context.Context, dns dnsclient.Client, fqdns []string) []epdgapi.CandidateAddress {
	type slot struct {
		v4, v6 []net.IP
	}
	slots := make([]slot, len(fqdns))
	var wg sync.WaitGroup
	for i, name := range fqdns {
		i, name := i, name
		wg.Add(2)
		go func() {
			defer wg.Done()
			v4, err := dns.Resolve(ctx, name, dnsclient.FamilyIPv4)
			if err != nil {
				dlog.Debugf(ctx, "selector: resolving %s (A) failed: %v", name, err)
			}
			slots[i].v4 = v4
		}()
		go func() {
			defer wg.Done()
			v6, err := dns.Resolve(ctx, name, dnsclient.FamilyIPv6)
			if err != nil {
				dlog.Debugf(ctx, "selector: resolving %s (AAAA) failed: %v", name, err)
			}
			slots[i].v6 = v6
		}()
	}
	wg.Wait()

	var out []epdgapi.CandidateAddress
	for _, s := range slots {
		for _, ip := range s.v4 {
			out = append(out, epdgapi.CandidateAddress{IP: ip})
		}
		for _, ip := range s.v6 {
			out = append(out, epdgapi.CandidateAddress{IP: ip})
		}
	}
	return out
}

// staticAddresses parses a comma-separated carrier-config value: each entry
// is either a literal IP (emitted as-is, no DNS) or an FQDN (DNS-resolved).
func staticAddresses(ctx context.Context, dns dnsclient.Client, raw string) []epdgapi.CandidateAddress {
	entries := splitCSV(raw)
	var fqdns []string
	var out []epdgapi.CandidateAddress
	for _, e := range entries {
		if e == "" {
			continue
		}
		if ip := net.ParseIP(e); ip != nil {
			out = append(out, epdgapi.CandidateAddress{IP: ip, Source: epdgapi.SourceStatic})
			continue
		}
		fqdns = append(fqdns, e)
	}
	for _, c := range resolveFQDNsOrdered(ctx, dns, fqdns) {
		c.Source = epdgapi.SourceStatic
		out = append(out, c)
	}
	return out
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, trim(s[start:i]))
			start = i + 1
		}
	}
	out = append(out, trim(s[start:]))
	return out
}

func trim(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[i:j]
}

// plmnAddresses resolves the PLMN source: generate FQDNs per the carrier's
// PLMN priority order and allow-list, then resolve each.
func plmnAddresses(ctx context.Context, dns dnsclient.Client, order []fqdn.PLMNSource, in fqdn.PLMNInput, allowList []string, emergency bool) []epdgapi.CandidateAddress {
	names := fqdn.BuildPLMN(order, in, allowList, emergency)
	out := resolveFQDNsOrdered(ctx, dns, names)
	for i := range out {
		out[i].Source = epdgapi.SourcePLMN
	}
	return out
}

// pcoAddresses queries the PcoStore for the current IPv4/IPv6 ePDG
// literals; they bypass DNS entirely.
func pcoAddresses(store *pco.Store) []epdgapi.CandidateAddress {
	var out []epdgapi.CandidateAddress
	for _, ip := range store.Addresses() {
		out = append(out, epdgapi.CandidateAddress{IP: ip, Source: epdgapi.SourcePCO})
	}
	return out
}

// cellularLocAddresses resolves the CELLULAR_LOC source: for each
// registered cell, generate cellular FQDNs and resolve them, skipping
// cells whose PLMN is invalid.
func cellularLocAddresses(ctx context.Context, dns dnsclient.Client, cells []fqdn.Cell, emergency bool) []epdgapi.CandidateAddress {
	var names []string
	for _, c := range cells {
		names = append(names, fqdn.BuildCellOrdered(c, emergency)...)
	}
	out := resolveFQDNsOrdered(ctx, dns, names)
	for i := range out {
		out[i].Source = epdgapi.SourceCellularLoc
	}
	return out
}

// dedupFirstWins concatenates source sub-lists in order, dropping
// duplicate IPs so the first occurrence wins.
func dedupFirstWins(lists ...[]epdgapi.CandidateAddress) []epdgapi.CandidateAddress {
	seen := make(map[string]struct{})
	var out []epdgapi.CandidateAddress
	for _, l := range lists {
		for _, c := range l {
			k := c.IP.String()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
