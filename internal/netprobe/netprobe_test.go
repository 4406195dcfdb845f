package netprobe

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLP struct {
	addrs       []net.IP
	unreachable map[string]bool
}

func (f *fakeLP) LocalAddresses() []net.IP { return f.addrs }
func (f *fakeLP) IsReachable(ip net.IP) bool {
	return !f.unreachable[ip.String()]
}

func TestFiltersLinkLocalAndULA(t *testing.T) {
	lp := &fakeLP{addrs: []net.IP{
		net.ParseIP("192.0.2.1"),
		net.ParseIP("fe80::1"),
		net.ParseIP("fc00::1"),
		net.ParseIP("2001:db8::1"),
	}}
	p := New(lp)
	addrs := p.RoutableAddresses()
	assert.Len(t, addrs, 2)
	assert.True(t, p.HasIPv4())
	assert.True(t, p.HasIPv6())
}

func TestUnreachableExcluded(t *testing.T) {
	lp := &fakeLP{
		addrs:       []net.IP{net.ParseIP("2001:db8::1")},
		unreachable: map[string]bool{"2001:db8::1": true},
	}
	p := New(lp)
	assert.False(t, p.HasIPv6())
}

func TestNoIPv6(t *testing.T) {
	lp := &fakeLP{addrs: []net.IP{net.ParseIP("192.0.2.1")}}
	p := New(lp)
	assert.True(t, p.HasIPv4())
	assert.False(t, p.HasIPv6())
}
