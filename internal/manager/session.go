package manager

import (
	"context"
	"net"

	"github.com/datawire/dlib/dlog"

	"github.com/datawire-oss/epdgtunnel/internal/carrierconfig"
	"github.com/datawire-oss/epdgtunnel/internal/ikeengine"
	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
	"github.com/datawire-oss/epdgtunnel/internal/tunnel"
)

// createSession implements the RESOLVING -> CONNECTING action: pick the
// target address, select mobility/INITIAL_CONTACT options, and call the IKE
// engine.
func (m *Manager) createSession(ctx context.Context, apn string, st *apnState, target net.IP) {
	st.kind = stateConnecting
	st.boundEpdg = target
	st.ikeOpened = false
	st.childCfg = nil

	initialContact := !m.seenEpdgs[target.String()] && !st.emergencyFirstAttempt
	m.seenEpdgs[target.String()] = true

	var opts []ikeengine.MobilityOption
	opts = append(opts, ikeengine.OptionRekeyMobility)
	if target.To4() != nil {
		opts = append(opts, ikeengine.OptionMobike)
	}
	if initialContact {
		opts = append(opts, ikeengine.OptionInitialContact)
	}
	if m.cfg.Bool(carrierconfig.KeyIkeDeviceIdentitySupported) {
		opts = append(opts, ikeengine.OptionDeviceIdentity)
	}

	params := ikeengine.SessionParams{
		ServerAddress:     target,
		LocalAddress:      srcAddressFor(st.tsr, target),
		Options:           opts,
		RetransmitMsec:    m.cfg.RetransmitTimerMsec(),
		DpdTimerSec:       m.cfg.Int(carrierconfig.KeyDpdTimerSec),
		NatKeepAliveSec:   m.cfg.NattKeepAliveSeconds(),
		RekeyHardTimerSec: m.cfg.Int(carrierconfig.KeyIkeRekeyHardTimerSec),
		RekeySoftTimerSec: m.cfg.Int(carrierconfig.KeyIkeRekeySoftTimerSec),
		AeadAlgorithms:    m.cfg.IntArray(carrierconfig.KeySupportedIkeAeadAlgorithms),
	}
	childParams := ikeengine.ChildSessionParams{
		RekeyHardTimerSec: m.cfg.Int(carrierconfig.KeyChildSaRekeyHardTimerSec),
		RekeySoftTimerSec: m.cfg.Int(carrierconfig.KeyChildSaRekeySoftTimerSec),
		AeadAlgorithms:    m.cfg.IntArray(carrierconfig.KeySupportedChildAeadAlgorithms),
		RequestPcscf:      st.tsr.RequestPcscf,
	}

	ikeCb := &ikeCallback{apn: apn, token: st.token, msgs: m.msgs}
	childCb := &childCallback{apn: apn, token: st.token, msgs: m.msgs}

	session, err := m.engine.CreateIkeSession(ctx, params, childParams, ikeCb, childCb)
	if err != nil {
		dlog.Errorf(ctx, "epdg-manager: createIkeSession failed for %s: %v", apn, err)
		m.handleIkeClosedException(ctx, &evtIkeClosedException{apn: apn, token: st.token, err: ikeerr.Newf(ikeerr.IkeInternalException, err)})
		return
	}

	m.table.Create(&tunnel.Config{
		APN:           apn,
		Session:       session,
		SrcIPv4:       st.tsr.SrcIPv4,
		SrcIPv6:       st.tsr.SrcIPv6,
		SrcIPv6Prefix: st.tsr.SrcIPv6Prefix,
		IsEmergency:   st.tsr.IsEmergency,
		BoundEpdg:     target,
		Callback:      st.cb,
		Metrics:       st.metrics,
	})
}

// ikeCallback adapts ikeengine.IkeCallback onto the manager's message
// channel.
type ikeCallback struct {
	apn   string
	token uint64
	msgs  chan interface{}
}

func (c *ikeCallback) OnOpened(cfg ikeengine.SessionConfig) {
	c.msgs <- &evtIkeOpened{apn: c.apn, token: c.token, cfg: cfg}
}

func (c *ikeCallback) OnClosed() {
	c.msgs <- &evtIkeClosed{apn: c.apn, token: c.token}
}

func (c *ikeCallback) OnClosedWithException(err *ikeerr.Error) {
	c.msgs <- &evtIkeClosedException{apn: c.apn, token: c.token, err: err}
}

func (c *ikeCallback) OnConnectionInfoChanged(ikeengine.SessionConfig) {}

func (c *ikeCallback) OnLivenessStatusChanged(status ikeengine.LivenessStatus) {
	c.msgs <- &evtLivenessStatus{apn: c.apn, token: c.token, status: status}
}

// childCallback adapts ikeengine.ChildCallback onto the manager's message
// channel.
type childCallback struct {
	apn   string
	token uint64
	msgs  chan interface{}
}

func (c *childCallback) OnOpened(cfg ikeengine.ChildSessionConfig) {
	c.msgs <- &evtChildOpened{apn: c.apn, token: c.token, cfg: cfg}
}

func (c *childCallback) OnIpSecTransformCreated(ikeengine.Transform, ikeengine.TransformDirection) {}

func (c *childCallback) OnIpSecTransformDeleted(ikeengine.Transform, ikeengine.TransformDirection) {}

func (c *childCallback) OnClosed() {}
