package manager

import (
	"context"

	"github.com/datawire-oss/epdgtunnel/internal/carrierconfig"
	"github.com/datawire-oss/epdgtunnel/internal/ikeengine"
	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
	"github.com/datawire-oss/epdgtunnel/internal/tunnel"
	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

func (m *Manager) handleIkeOpened(ctx context.Context, e *evtIkeOpened) {
	st, ok := m.validToken(e.apn, e.token)
	if !ok || st.kind != stateConnecting {
		return
	}
	st.ikeOpened = true
	if st.childCfg != nil {
		m.openTunnel(ctx, e.apn, st)
	}
}

func (m *Manager) handleChildOpened(ctx context.Context, e *evtChildOpened) {
	st, ok := m.validToken(e.apn, e.token)
	if !ok || st.kind != stateConnecting {
		return
	}
	cfg := e.cfg
	st.childCfg = &cfg
	if st.ikeOpened {
		m.openTunnel(ctx, e.apn, st)
	}
}

// openTunnel is the CONNECTING -> OPEN transition. Reaching OPEN ends this
// bring-up's occupancy of the one-at-a-time slot, the same as a terminal
// failure does in cleanupTerminal.
func (m *Manager) openTunnel(ctx context.Context, apn string, st *apnState) {
	st.kind = stateOpen
	st.emergencyFirstAttempt = false

	distinct := m.cfg.Bool(carrierconfig.KeyDistinctEpdgForEmergency)
	m.monitor.ApnConnected(apn, st.boundEpdg, st.tsr.IsEmergency, distinct)
	m.sel.OnEpdgConnectedSuccessfully()

	props := &epdgapi.TunnelLinkProperties{
		DNSAddresses:   st.childCfg.DNSAddresses,
		PcscfAddresses: st.childCfg.PcscfAddresses,
		IfaceName:      st.childCfg.IfaceName,
		SliceInfo:      st.childCfg.SliceInfo,
	}
	for i, ip := range st.childCfg.InternalAddresses {
		prefix := 0
		if i < len(st.childCfg.InternalPrefixes) {
			prefix = st.childCfg.InternalPrefixes[i]
		}
		props.InternalAddresses = append(props.InternalAddresses, epdgapi.LinkAddress{IP: ip, Prefix: prefix})
	}

	m.table.Update(apn, func(cfg *tunnel.Config) {
		cfg.IfaceName = st.childCfg.IfaceName
		cfg.DNSAddresses = st.childCfg.DNSAddresses
		cfg.PcscfAddresses = st.childCfg.PcscfAddresses
		cfg.InternalAddresses = props.InternalAddresses
	})

	st.cb.OnOpened(apn, props)
	st.metrics.OnTunnelOpened(apn, nowMillisSince(st.startedAt))

	if m.inFlight && m.inFlightAPN == apn {
		m.dispatchNext(ctx)
	}
}

// handleIkeClosed is the graceful/voluntary ikeCb.OnClosed() path: it only
// completes a manager-initiated close (CLOSING -> IDLE).
func (m *Manager) handleIkeClosed(ctx context.Context, e *evtIkeClosed) {
	st, ok := m.validToken(e.apn, e.token)
	if !ok || st.kind != stateClosing {
		return
	}
	m.finalizeVoluntaryClose(ctx, e.apn, st, st.closeReason)
}

func (m *Manager) finalizeVoluntaryClose(ctx context.Context, apn string, st *apnState, reason *ikeerr.Error) {
	err := reason
	if err == nil {
		err = ikeerr.NoErr()
	}
	m.errPolicy.ReportError(apn, err, 0, false)

	cb := st.closeCallback
	metrics := st.closeMetrics
	if cb == nil {
		cb = st.cb
	}
	if metrics == nil {
		metrics = st.metrics
	}
	cb.OnClosed(apn, err)
	metrics.OnTunnelClosed(apn, err)
	m.cleanupTerminal(ctx, apn)
}

// handleIkeClosedException implements the CONNECTING/OPEN rows for
// ikeCb.OnClosedWithException: external-class failures during CONNECTING
// advance to the next candidate (or fail), internal-class failures and any
// OPEN-state exception fail the tunnel outright.
func (m *Manager) handleIkeClosedException(ctx context.Context, e *evtIkeClosedException) {
	st, ok := m.validToken(e.apn, e.token)
	if !ok {
		return
	}

	switch st.kind {
	case stateConnecting:
		m.handleConnectingFailure(ctx, e.apn, st, e.err)
	case stateOpen:
		// Involuntary close while OPEN: notify the caller but never
		// report to the error-policy collaborator. The connectivity probe
		// still applies -- IKE_MOBILITY_TIMEOUT in particular is only ever
		// raised against an already-established session.
		m.probeNetworkOnNoResponse(e.err)
		m.table.Remove(e.apn)
		m.monitor.ApnDisconnected(e.apn)
		delete(m.states, e.apn)
		st.cb.OnClosed(e.apn, e.err)
		st.metrics.OnTunnelClosed(e.apn, e.err)
	case stateClosing:
		// A graceful close was requested and the session ended with an
		// exception instead of OnClosed: complete it as a voluntary close.
		// (A forced close has already removed the state entry, so its late
		// exception is dropped by validToken above.)
		m.finalizeVoluntaryClose(ctx, e.apn, st, st.closeReason)
	}
}

func (m *Manager) handleConnectingFailure(ctx context.Context, apn string, st *apnState, err *ikeerr.Error) {
	if st.emergencyFirstAttempt && st.childCfg == nil {
		// The emergency session's same-ePDG attempt closed before the
		// child SA opened: run a follow-up selection that may pick a
		// distinct ePDG, this time with INITIAL_CONTACT.
		st.emergencyFirstAttempt = false
		m.resolve(ctx, apn)
		return
	}

	class := err.Class()
	if class == ikeerr.ClassNetwork || class == ikeerr.ClassProtocol {
		m.sel.OnEpdgConnectionFailed(st.boundEpdg, class)
	}
	m.reportConnectingError(apn, err)

	if class != ikeerr.ClassNetwork && class != ikeerr.ClassProtocol {
		m.failSequence(ctx, apn, st, err)
		return
	}

	if m.cfg.Bool(carrierconfig.KeyExclusionDrivenIteration) {
		m.resolve(ctx, apn)
		return
	}

	st.cursor++
	if st.cursor >= len(st.candidates) {
		m.failSequence(ctx, apn, st, err)
		return
	}
	m.createSession(ctx, apn, st, st.candidates[st.cursor])
}

// reportConnectingError implements the reporting rule for an involuntary
// CONNECTING-state close: error-policy reporting with the carve-out that
// suppresses IKE_MOBILITY_TIMEOUT, plus the network-connectivity probe.
func (m *Manager) reportConnectingError(apn string, err *ikeerr.Error) {
	if err.Kind() != ikeerr.IkeMobilityTimeout {
		secs, ok := 0, false
		if b := err.Backoff(); b != nil {
			secs, ok = b.Seconds()
		}
		m.errPolicy.ReportError(apn, err, secs, ok)
	}
	m.probeNetworkOnNoResponse(err)
}

// probeNetworkOnNoResponse runs the connectivity probe for the no-response
// error kinds, independent of error-policy reporting so an OPEN-state
// involuntary close (which must never reach ErrorPolicy.ReportError) can
// still trigger it.
func (m *Manager) probeNetworkOnNoResponse(err *ikeerr.Error) {
	switch err.Kind() {
	case ikeerr.IkeInitTimeout, ikeerr.IkeDpdTimeout, ikeerr.IkeMobilityTimeout, ikeerr.IkeNetworkLost:
		if m.network != nil && m.network.Validated() && m.cfg.Bool(carrierconfig.KeyValidateNetworkOnNoResponse) {
			m.netCollab.ReportNetworkConnectivity(m.network, false)
		}
	}
}

func (m *Manager) handleValidate(_ context.Context, c *cmdValidate) {
	cfg := m.table.Get(c.apn)
	if cfg == nil || cfg.Session == nil {
		return
	}
	cfg.Session.RequestLivenessCheck()
}

func (m *Manager) handleLivenessStatus(_ context.Context, e *evtLivenessStatus) {
	st, ok := m.validToken(e.apn, e.token)
	if !ok {
		return
	}
	mapped := mapLiveness(e.status)
	if mapped == epdgapi.ValidationInProgress && st.validationSet && st.lastValidation == epdgapi.ValidationInProgress {
		return
	}
	st.lastValidation = mapped
	st.validationSet = true
	st.cb.OnNetworkValidationStatusChanged(e.apn, mapped)
}

func mapLiveness(s ikeengine.LivenessStatus) epdgapi.NetworkValidationState {
	switch s {
	case ikeengine.LivenessOnDemandStarted, ikeengine.LivenessOnDemandOngoing,
		ikeengine.LivenessBackgroundStarted, ikeengine.LivenessBackgroundOngoing:
		return epdgapi.ValidationInProgress
	case ikeengine.LivenessFailure:
		return epdgapi.ValidationFailure
	default: // Success, or any unknown status
		return epdgapi.ValidationSuccess
	}
}
