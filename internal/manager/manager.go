// Package manager implements the ePDG tunnel manager: a single-threaded
// event loop that drives the selector, creates IKE sessions through the
// external engine collaborator, enforces the one-bring-up-at-a-time rule,
// routes IKE/child callbacks through the per-APN state machine and token
// table, reports errors with backoff, and propagates network-mobility
// updates. It runs its own single-goroutine event loop under a dgroup.Group
// and receives every event as a channel message.
package manager

import (
	"context"
	"net"
	"time"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"

	"github.com/datawire-oss/epdgtunnel/internal/carrierconfig"
	"github.com/datawire-oss/epdgtunnel/internal/ikeengine"
	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
	"github.com/datawire-oss/epdgtunnel/internal/monitor"
	"github.com/datawire-oss/epdgtunnel/internal/netprobe"
	"github.com/datawire-oss/epdgtunnel/internal/selector"
	"github.com/datawire-oss/epdgtunnel/internal/tunnel"
	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

// Manager is the ePDG tunnel manager. One Manager typically serves one
// underlying-network/SIM-slot pairing and every APN brought up on it.
type Manager struct {
	cfg       *carrierconfig.Config
	sel       *selector.Selector
	engine    ikeengine.Engine
	monitor   *monitor.Monitor
	errPolicy epdgapi.ErrorPolicy
	netCollab epdgapi.NetworkCollaborator
	table     *tunnel.Table
	tokens    *tunnel.TokenTable

	msgs chan interface{}

	// event-loop-owned state; touched only from run().
	network   epdgapi.Network
	linkProps epdgapi.LinkProperties
	frozen    bool
	rctx      selector.ResolveContext

	states map[string]*apnState

	inFlight    bool
	inFlightAPN string
	pending     []*cmdBringUp

	seenEpdgs map[string]bool
}

// New builds a Manager. sel, table, and tokens are owned by the caller so
// they can be shared with other collaborators (e.g. the carrier-signal
// pipeline pushing into the same PcoStore the selector reads from).
func New(
	cfg *carrierconfig.Config,
	sel *selector.Selector,
	engine ikeengine.Engine,
	mon *monitor.Monitor,
	errPolicy epdgapi.ErrorPolicy,
	netCollab epdgapi.NetworkCollaborator,
	table *tunnel.Table,
	tokens *tunnel.TokenTable,
) *Manager {
	return &Manager{
		cfg:       cfg,
		sel:       sel,
		engine:    engine,
		monitor:   mon,
		errPolicy: errPolicy,
		netCollab: netCollab,
		table:     table,
		tokens:    tokens,
		msgs:      make(chan interface{}, 32),
		states:    make(map[string]*apnState),
		seenEpdgs: make(map[string]bool),
	}
}

// Start launches the event-loop goroutine under g, named "epdg-manager"
// after the subsystem it runs.
func (m *Manager) Start(ctx context.Context, g *dgroup.Group) {
	g.Go("epdg-manager", func(ctx context.Context) error {
		m.run(ctx)
		return nil
	})
}

// BringUpTunnel requests a tunnel be brought up for tsr.APN. It blocks only
// long enough for the event loop to evaluate admission, then returns; the
// resulting tunnel lifecycle is delivered asynchronously through cb.
func (m *Manager) BringUpTunnel(tsr epdgapi.TunnelSetupRequest, cb epdgapi.Callback, metrics epdgapi.MetricsSink) bool {
	if metrics == nil {
		metrics = epdgapi.NopMetrics{}
	}
	reply := make(chan bool, 1)
	m.msgs <- &cmdBringUp{tsr: tsr, cb: cb, metrics: metrics, accepted: reply}
	return <-reply
}

// CloseTunnel requests apn's tunnel be closed. It never blocks the caller.
func (m *Manager) CloseTunnel(apn string, force bool, cb epdgapi.Callback, metrics epdgapi.MetricsSink, reason *ikeerr.Error) {
	if metrics == nil {
		metrics = epdgapi.NopMetrics{}
	}
	m.msgs <- &cmdClose{apn: apn, force: force, cb: cb, metrics: metrics, reason: reason}
}

// UpdateNetwork propagates a network-mobility change. network == nil &&
// props == nil freezes the manager.
func (m *Manager) UpdateNetwork(network epdgapi.Network, props epdgapi.LinkProperties) {
	m.msgs <- &cmdUpdateNetwork{network: network, props: props}
}

// RequestNetworkValidation asks the engine to run a liveness check for apn.
func (m *Manager) RequestNetworkValidation(apn string) {
	m.msgs <- &cmdValidate{apn: apn}
}

// SetResolveContext updates the PLMN/cell inputs the selector uses for
// subsequent resolutions.
func (m *Manager) SetResolveContext(rctx selector.ResolveContext) {
	m.msgs <- &cmdSetResolveContext{rctx: rctx}
}

func (m *Manager) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.msgs:
			m.handle(ctx, msg)
		}
	}
}

func (m *Manager) handle(ctx context.Context, msg interface{}) {
	switch v := msg.(type) {
	case *cmdBringUp:
		m.handleBringUp(ctx, v)
	case *cmdClose:
		m.handleClose(ctx, v)
	case *cmdUpdateNetwork:
		m.handleUpdateNetwork(ctx, v)
	case *cmdValidate:
		m.handleValidate(ctx, v)
	case *cmdSetResolveContext:
		m.rctx = v.rctx
	case *evtSelectorResult:
		m.handleSelectorResult(ctx, v)
	case *evtSelectorError:
		m.handleSelectorError(ctx, v)
	case *evtIkeOpened:
		m.handleIkeOpened(ctx, v)
	case *evtIkeClosed:
		m.handleIkeClosed(ctx, v)
	case *evtIkeClosedException:
		m.handleIkeClosedException(ctx, v)
	case *evtChildOpened:
		m.handleChildOpened(ctx, v)
	case *evtLivenessStatus:
		m.handleLivenessStatus(ctx, v)
	default:
		dlog.Warnf(ctx, "epdg-manager: unknown message type %T", msg)
	}
}

func (m *Manager) hasActiveTunnel() bool {
	return len(m.states) > 0
}

func (m *Manager) hasOpenTunnel() bool {
	for _, st := range m.states {
		if st.kind == stateOpen {
			return true
		}
	}
	return false
}

func (m *Manager) probe() *netprobe.Probe {
	return netprobe.New(m.linkProps)
}

func filterFromProtocol(p epdgapi.Protocol) epdgapi.AddressFilter {
	switch p {
	case epdgapi.ProtocolIP:
		return epdgapi.FilterIPv4
	case epdgapi.ProtocolIPv6:
		return epdgapi.FilterIPv6
	default:
		return epdgapi.FilterIPv4v6
	}
}

func addressOrderFromConfig(cfg *carrierconfig.Config) epdgapi.AddressOrder {
	switch carrierconfig.IPPreference(cfg.Int(carrierconfig.KeyAddressIPTypePreference)) {
	case carrierconfig.PrefIPv4Preferred, carrierconfig.PrefIPv4Only:
		return epdgapi.OrderIPv4Preferred
	case carrierconfig.PrefIPv6Preferred, carrierconfig.PrefIPv6Only:
		return epdgapi.OrderIPv6Preferred
	default:
		return epdgapi.OrderSystem
	}
}

func srcAddressFor(tsr epdgapi.TunnelSetupRequest, ip net.IP) net.IP {
	if ip.To4() != nil {
		return tsr.SrcIPv4
	}
	return tsr.SrcIPv6
}

func nowMillisSince(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
