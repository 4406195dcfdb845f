package manager

import (
	"context"
	"net"

	"github.com/datawire-oss/epdgtunnel/internal/carrierconfig"
	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
	"github.com/datawire-oss/epdgtunnel/internal/selector"
)

// selectorCallback adapts selector.Callback onto the manager's message
// channel, so the selector pool's worker goroutine never touches manager
// state directly.
type selectorCallback struct {
	apn   string
	token uint64
	msgs  chan interface{}
}

func (c *selectorCallback) OnServerListChanged(_ string, list []net.IP) {
	c.msgs <- &evtSelectorResult{apn: c.apn, token: c.token, ips: list}
}

func (c *selectorCallback) OnError(_ string, err *ikeerr.Error) {
	c.msgs <- &evtSelectorError{apn: c.apn, token: c.token, err: err}
}

// resolve starts (or restarts) selection for apn's currently RESOLVING
// state entry.
func (m *Manager) resolve(ctx context.Context, apn string) {
	st := m.states[apn]
	st.kind = stateResolving

	filter := filterFromProtocol(st.tsr.Protocol)
	order := addressOrderFromConfig(m.cfg)
	cb := &selectorCallback{apn: apn, token: st.token, msgs: m.msgs}
	m.sel.GetValidatedServerList(ctx, apn, filter, order, st.tsr.IsRoaming, st.tsr.IsEmergency, selector.PurposeSetup, m.probe(), m.rctx, cb)
}

func (m *Manager) validToken(apn string, token uint64) (*apnState, bool) {
	st, ok := m.states[apn]
	if !ok || !m.tokens.Valid(apn, token) {
		return nil, false
	}
	return st, true
}

func (m *Manager) handleSelectorResult(ctx context.Context, e *evtSelectorResult) {
	st, ok := m.validToken(e.apn, e.token)
	if !ok || st.kind != stateResolving {
		return
	}
	if len(e.ips) == 0 {
		m.failSequence(ctx, e.apn, st, ikeerr.New(ikeerr.ServerSelectionFailed))
		return
	}

	st.candidates = e.ips
	st.cursor = 0

	if st.tsr.IsEmergency &&
		m.cfg.Bool(carrierconfig.KeyDistinctEpdgForEmergency) &&
		m.monitor.EpdgForNormal() != nil &&
		st.boundEpdg == nil {
		st.emergencyFirstAttempt = true
		m.createSession(ctx, e.apn, st, m.monitor.EpdgForNormal())
		return
	}

	m.createSession(ctx, e.apn, st, e.ips[st.cursor])
}

func (m *Manager) handleSelectorError(ctx context.Context, e *evtSelectorError) {
	st, ok := m.validToken(e.apn, e.token)
	if !ok || st.kind != stateResolving {
		return
	}
	m.failSequence(ctx, e.apn, st, e.err)
}

// failSequence is the RESOLVING -> FAILED transition.
func (m *Manager) failSequence(ctx context.Context, apn string, st *apnState, err *ikeerr.Error) {
	st.kind = stateFailed
	m.errPolicy.ReportError(apn, err, 0, false)
	st.cb.OnClosed(apn, err)
	st.metrics.OnTunnelClosed(apn, err)
	m.cleanupTerminal(ctx, apn)
}

// cleanupTerminal removes every trace of apn's sequence and, if apn was the
// one occupying the in-flight slot, dispatches the next queued one. A
// terminal apn that is NOT the in-flight occupant (e.g. an already-OPEN
// tunnel closing voluntarily while a distinct bring-up is in flight) must
// never free a slot it doesn't hold.
func (m *Manager) cleanupTerminal(ctx context.Context, apn string) {
	wasInFlight := m.inFlight && m.inFlightAPN == apn
	m.table.Remove(apn)
	m.monitor.ApnDisconnected(apn)
	delete(m.states, apn)
	if wasInFlight {
		m.dispatchNext(ctx)
	}
}
