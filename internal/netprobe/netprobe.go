// Package netprobe reports which address families an underlying network
// currently has routable local addresses for.
package netprobe

import "net"

// LinkProperties is the minimal view of an underlying network's local
// addresses this package needs; a real implementation is supplied by the
// embedding process.
type LinkProperties interface {
	// LocalAddresses returns every local address the network advertises,
	// unfiltered.
	LocalAddresses() []net.IP
	// IsReachable reports whether the given source address can currently
	// reach the network (used by the mobility handling path).
	IsReachable(addr net.IP) bool
}

// Probe filters LinkProperties down to the routable set: IPv6 link-local
// (fe80::/10), IPv6 unique-local (fc00::/7), and addresses the network
// itself reports as unreachable, are all excluded.
type Probe struct {
	lp LinkProperties
}

func New(lp LinkProperties) *Probe {
	return &Probe{lp: lp}
}

var (
	v6LinkLocal, _   = parseCIDR("fe80::/10")
	v6UniqueLocal, _ = parseCIDR("fc00::/7")
)

func parseCIDR(s string) (*net.IPNet, error) {
	_, n, err := net.ParseCIDR(s)
	return n, err
}

// RoutableAddresses returns the local addresses minus non-routable ranges
// and minus anything the network reports unreachable.
func (p *Probe) RoutableAddresses() []net.IP {
	var out []net.IP
	for _, ip := range p.lp.LocalAddresses() {
		if !isRoutable(ip) {
			continue
		}
		if !p.lp.IsReachable(ip) {
			continue
		}
		out = append(out, ip)
	}
	return out
}

func isRoutable(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return true
	}
	if v6LinkLocal.Contains(ip) || v6UniqueLocal.Contains(ip) {
		return false
	}
	return true
}

// HasIPv4 reports whether the network currently has a routable IPv4 local
// address.
func (p *Probe) HasIPv4() bool {
	for _, ip := range p.RoutableAddresses() {
		if ip.To4() != nil {
			return true
		}
	}
	return false
}

// HasIPv6 reports whether the network currently has a routable IPv6 local
// address.
func (p *Probe) HasIPv6() bool {
	for _, ip := range p.RoutableAddresses() {
		if ip.To4() == nil {
			return true
		}
	}
	return false
}
