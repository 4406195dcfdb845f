// Package monitor tracks which ePDG address is currently serving normal
// traffic and, optionally, a distinct one serving emergency traffic, and
// the set of APNs bound to each.
package monitor

import (
	"net"
	"sync"
)

// Monitor holds up to two bindings, normal and emergency, each referenced
// by the set of APN names currently bound to it.
type Monitor struct {
	mu sync.Mutex

	normal    net.IP
	emergency net.IP

	normalAPNs    map[string]struct{}
	emergencyAPNs map[string]struct{}
}

// New returns an empty Monitor; neither binding is set.
func New() *Monitor {
	return &Monitor{
		normalAPNs:    make(map[string]struct{}),
		emergencyAPNs: make(map[string]struct{}),
	}
}

// ApnConnected records that apn opened a tunnel to ip. When isEmergency and
// the carrier allows a distinct emergency ePDG and ip differs from the
// current normal binding, the emergency binding is set; otherwise the
// normal binding is set.
func (m *Monitor) ApnConnected(apn string, ip net.IP, isEmergency, distinctEmergencyAllowed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isEmergency && distinctEmergencyAllowed && !m.normal.Equal(ip) {
		m.emergency = ip
		m.emergencyAPNs[apn] = struct{}{}
		return
	}
	m.normal = ip
	m.normalAPNs[apn] = struct{}{}
}

// ApnDisconnected removes apn from whichever binding(s) reference it,
// clearing a binding once no APN references it any longer.
func (m *Monitor) ApnDisconnected(apn string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.normalAPNs, apn)
	if len(m.normalAPNs) == 0 {
		m.normal = nil
	}
	delete(m.emergencyAPNs, apn)
	if len(m.emergencyAPNs) == 0 {
		m.emergency = nil
	}
}

// EpdgForNormal returns the ePDG currently serving normal traffic, or nil.
func (m *Monitor) EpdgForNormal() net.IP {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.normal
}

// EpdgForEmergency returns the ePDG currently serving emergency traffic, or
// nil when none is bound (emergency traffic shares the normal ePDG).
func (m *Monitor) EpdgForEmergency() net.IP {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emergency
}

// HasSeparateEmergencyEpdg reports whether a distinct emergency binding is
// currently in effect.
func (m *Monitor) HasSeparateEmergencyEpdg() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emergency != nil
}
