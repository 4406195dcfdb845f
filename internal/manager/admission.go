package manager

import (
	"context"
	"time"

	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

// admit validates a tunnel setup request before any state is touched. It
// never mutates state.
func (m *Manager) admit(tsr epdgapi.TunnelSetupRequest) bool {
	if tsr.APN == "" {
		return false
	}
	switch tsr.Protocol {
	case epdgapi.ProtocolIP, epdgapi.ProtocolIPv6, epdgapi.ProtocolIPv4v6:
	default:
		return false
	}
	if tsr.PduSessionID < 0 || tsr.PduSessionID > 15 {
		return false
	}
	if _, ok := m.states[tsr.APN]; ok {
		return false
	}
	if m.network == nil || m.frozen {
		return false
	}
	return true
}

func (m *Manager) handleBringUp(ctx context.Context, c *cmdBringUp) {
	if !m.admit(c.tsr) {
		c.accepted <- false
		return
	}
	c.accepted <- true

	if m.inFlight {
		m.pending = append(m.pending, c)
		return
	}
	m.startBringUp(ctx, c)
}

// dispatchNext pops and starts the next queued bring-up, if any, once the
// previously in-flight sequence reaches a terminal (OPEN or FAILED) point.
func (m *Manager) dispatchNext(ctx context.Context) {
	m.inFlight = false
	m.inFlightAPN = ""
	if len(m.pending) == 0 {
		return
	}
	next := m.pending[0]
	m.pending = m.pending[1:]
	m.startBringUp(ctx, next)
}

func (m *Manager) startBringUp(ctx context.Context, c *cmdBringUp) {
	m.inFlight = true
	m.inFlightAPN = c.tsr.APN
	token := m.tokens.Next(c.tsr.APN)
	st := &apnState{
		kind:           stateResolving,
		tsr:            c.tsr,
		cb:             c.cb,
		metrics:        c.metrics,
		token:          token,
		lastValidation: epdgapi.ValidationInProgress,
		startedAt:      time.Now(),
	}
	m.states[c.tsr.APN] = st
	m.resolve(ctx, c.tsr.APN)
}
