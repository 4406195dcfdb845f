package dnsclient

import (
	"context"
	"net"
	"sync"
)

// Fake is an in-memory Client used by tests in place of a real resolver.
type Fake struct {
	mu      sync.Mutex
	records map[string][]net.IP // key: hostname|family
	delay   map[string]struct{} // hostnames that should time out
}

func NewFake() *Fake {
	return &Fake{records: make(map[string][]net.IP), delay: make(map[string]struct{})}
}

func key(hostname string, family Family) string {
	suffix := "4"
	if family == FamilyIPv6 {
		suffix = "6"
	}
	return hostname + "|" + suffix
}

// Set registers the addresses a hostname resolves to for a given family.
func (f *Fake) Set(hostname string, family Family, addrs ...net.IP) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[key(hostname, family)] = addrs
}

func (f *Fake) Resolve(ctx context.Context, hostname string, family Family) ([]net.IP, error) {
	f.mu.Lock()
	_, stall := f.delay[hostname]
	addrs := f.records[key(hostname, family)]
	f.mu.Unlock()
	if stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return addrs, nil
}
