package manager

import (
	"context"

	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
)

// handleClose implements closeTunnel.
func (m *Manager) handleClose(ctx context.Context, c *cmdClose) {
	cfg := m.table.Get(c.apn)
	st := m.states[c.apn]
	if cfg == nil || st == nil {
		c.cb.OnClosed(c.apn, ikeerr.New(ikeerr.TunnelNotFound))
		return
	}

	st.kind = stateClosing
	st.closeCallback = c.cb
	st.closeMetrics = c.metrics
	st.closeReason = c.reason

	if c.force {
		cfg.Session.Kill()
		m.finalizeVoluntaryClose(ctx, c.apn, st, c.reason)
		return
	}
	cfg.Session.Close()
}
