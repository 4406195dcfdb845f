// Package tunnel implements the per-APN live-tunnel table and the token
// table used to discard callbacks from obsolete sessions. The table itself
// is a mutex-guarded map keyed by APN, with entries created and released
// explicitly by the owner rather than garbage-collected.
package tunnel

import (
	"net"
	"sync"

	"github.com/datawire-oss/epdgtunnel/internal/ikeengine"
	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

// Config is the live tunnel record for one APN.
type Config struct {
	APN           string
	Session       ikeengine.Session
	IfaceName     string
	SrcIPv4       net.IP
	SrcIPv6       net.IP
	SrcIPv6Prefix int
	IsEmergency   bool
	BoundEpdg     net.IP
	Callback      epdgapi.Callback
	Metrics       epdgapi.MetricsSink

	PcscfAddresses    []net.IP
	DNSAddresses      []net.IP
	InternalAddresses []epdgapi.LinkAddress
}

// Table holds at most one Config per APN.
type Table struct {
	mu      sync.Mutex
	configs map[string]*Config
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{configs: make(map[string]*Config)}
}

// Create installs cfg for cfg.APN, replacing anything previously recorded.
// The manager calls it once per IKE session it starts, so a retry against
// another candidate for the same APN replaces the earlier entry.
func (t *Table) Create(cfg *Config) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.configs[cfg.APN] = cfg
}

// Get returns the Config for apn, or nil if none exists.
func (t *Table) Get(apn string) *Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.configs[apn]
}

// Exists reports whether a Config is currently recorded for apn.
func (t *Table) Exists(apn string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.configs[apn]
	return ok
}

// Remove deletes the Config for apn. It is a no-op if none exists.
func (t *Table) Remove(apn string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.configs, apn)
}

// Update applies fn to the Config for apn under the table lock, if one
// exists. fn must not call back into the Table.
func (t *Table) Update(apn string, fn func(*Config)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cfg, ok := t.configs[apn]; ok {
		fn(cfg)
	}
}

// APNs returns the APN names with a currently recorded Config.
func (t *Table) APNs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.configs))
	for apn := range t.configs {
		out = append(out, apn)
	}
	return out
}
