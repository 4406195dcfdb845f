package selector

import (
	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
	"github.com/datawire-oss/epdgtunnel/internal/netprobe"
	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

// applyFamilyFilter restricts candidates to the requested family, failing
// with a typed error when the network can't route the requested family at
// all.
func applyFamilyFilter(candidates []epdgapi.CandidateAddress, filter epdgapi.AddressFilter, probe *netprobe.Probe) ([]epdgapi.CandidateAddress, *ikeerr.Error) {
	switch filter {
	case epdgapi.FilterIPv4:
		if !probe.HasIPv4() {
			return nil, ikeerr.New(ikeerr.AddressOnlyIPv4Allowed)
		}
		return filterFamily(candidates, true), nil
	case epdgapi.FilterIPv6:
		if !probe.HasIPv6() {
			return nil, ikeerr.New(ikeerr.AddressOnlyIPv6Allowed)
		}
		return filterFamily(candidates, false), nil
	default: // FilterIPv4v6
		return candidates, nil
	}
}

func filterFamily(candidates []epdgapi.CandidateAddress, v4 bool) []epdgapi.CandidateAddress {
	var out []epdgapi.CandidateAddress
	for _, c := range candidates {
		isV4 := c.IP.To4() != nil
		if isV4 == v4 {
			out = append(out, c)
		}
	}
	return out
}

// applyOrder implements the candidate ordering rule: IPv4-preferred and
// IPv6-preferred do a stable partition preserving intra-family order; system
// preserves the pipeline order unchanged.
func applyOrder(candidates []epdgapi.CandidateAddress, order epdgapi.AddressOrder) []epdgapi.CandidateAddress {
	switch order {
	case epdgapi.OrderIPv4Preferred:
		return stablePartition(candidates, true)
	case epdgapi.OrderIPv6Preferred:
		return stablePartition(candidates, false)
	default: // OrderSystem
		return candidates
	}
}

func stablePartition(candidates []epdgapi.CandidateAddress, v4First bool) []epdgapi.CandidateAddress {
	var first, second []epdgapi.CandidateAddress
	for _, c := range candidates {
		isV4 := c.IP.To4() != nil
		if isV4 == v4First {
			first = append(first, c)
		} else {
			second = append(second, c)
		}
	}
	return append(first, second...)
}
