package manager

import (
	"context"

	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

// handleUpdateNetwork: network == nil && props == nil freezes the manager —
// bringUpTunnel admission fails until the next non-nil update, while
// existing OPEN tunnels are left untouched.
func (m *Manager) handleUpdateNetwork(_ context.Context, c *cmdUpdateNetwork) {
	if c.network == nil && c.props == nil {
		m.network = nil
		m.linkProps = nil
		m.frozen = true
		return
	}
	m.frozen = false

	if m.hasOpenTunnel() && c.props != nil && !m.reachableForAnyTunnel(c.props) {
		// Unreachable for the source address of every tunnel in the table;
		// keep the old network until a later update is reachable.
		return
	}

	m.network = c.network
	m.linkProps = c.props
	for _, apn := range m.table.APNs() {
		st := m.states[apn]
		if st == nil || st.kind != stateOpen {
			continue
		}
		if cfg := m.table.Get(apn); cfg != nil && cfg.Session != nil {
			cfg.Session.SetNetwork(c.network)
		}
	}
}

func (m *Manager) reachableForAnyTunnel(props epdgapi.LinkProperties) bool {
	for _, apn := range m.table.APNs() {
		cfg := m.table.Get(apn)
		if cfg == nil {
			continue
		}
		if cfg.SrcIPv4 != nil && props.IsReachable(cfg.SrcIPv4) {
			return true
		}
		if cfg.SrcIPv6 != nil && props.IsReachable(cfg.SrcIPv6) {
			return true
		}
	}
	return false
}
