// Package ikeengine declares the external IKE engine collaborator. This
// module never implements IKEv2/IPsec itself -- a reusable engine library
// is assumed to satisfy these interfaces, implemented by a caller-owned
// type and only driven through its interface here.
package ikeengine

import (
	"context"
	"net"

	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
)

// MobilityOption is one of the IKE session options selected per the
// protocol-choice rule.
type MobilityOption int

const (
	OptionMobike MobilityOption = iota
	OptionRekeyMobility
	OptionInitialContact
	OptionDeviceIdentity
)

// SessionParams configures a new IKE session.
type SessionParams struct {
	ServerAddress     net.IP
	LocalAddress      net.IP
	Options           []MobilityOption
	RetransmitMsec    []int
	DpdTimerSec       int
	NatKeepAliveSec   int
	RekeyHardTimerSec int
	RekeySoftTimerSec int
	AeadAlgorithms    []int
}

// HasOption reports whether opt is present in p.Options.
func (p SessionParams) HasOption(opt MobilityOption) bool {
	for _, o := range p.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// ChildSessionParams configures the child SA negotiated alongside the IKE
// session.
type ChildSessionParams struct {
	RekeyHardTimerSec int
	RekeySoftTimerSec int
	AeadAlgorithms    []int
	RequestPcscf      bool
}

// SessionConfig is delivered by IkeCallback.OnOpened; it mirrors the
// connection info the engine reports once the IKE_SA is up.
type SessionConfig struct {
	LocalAddress  net.IP
	RemoteAddress net.IP
}

// ChildSessionConfig is delivered by ChildCallback.OnOpened; it carries the
// negotiated tunnel addresses the manager turns into TunnelLinkProperties.
type ChildSessionConfig struct {
	InternalAddresses []net.IP
	InternalPrefixes  []int
	DNSAddresses      []net.IP
	PcscfAddresses    []net.IP
	IfaceName         string
	SliceInfo         []byte
}

// TransformDirection distinguishes the inbound and outbound IPsec
// transforms a child SA installs.
type TransformDirection int

const (
	DirectionInbound TransformDirection = iota
	DirectionOutbound
)

// Transform is an opaque handle to a negotiated IPsec transform; this
// module never inspects it, only forwards it to the kernel/IPsec
// collaborator.
type Transform interface{}

// LivenessStatus is the engine's liveness-check status, collapsed by the
// manager into the caller-facing validation state.
type LivenessStatus int

const (
	LivenessOnDemandStarted LivenessStatus = iota
	LivenessOnDemandOngoing
	LivenessBackgroundStarted
	LivenessBackgroundOngoing
	LivenessSuccess
	LivenessFailure
)

// IkeCallback receives asynchronous events for one IKE session.
type IkeCallback interface {
	OnOpened(cfg SessionConfig)
	OnClosed()
	OnClosedWithException(err *ikeerr.Error)
	OnConnectionInfoChanged(info SessionConfig)
	OnLivenessStatusChanged(status LivenessStatus)
}

// ChildCallback receives asynchronous events for the child SA attached to
// one IKE session.
type ChildCallback interface {
	OnOpened(cfg ChildSessionConfig)
	OnIpSecTransformCreated(t Transform, dir TransformDirection)
	OnIpSecTransformDeleted(t Transform, dir TransformDirection)
	OnClosed()
}

// Session is the opaque per-APN IKE session handle.
type Session interface {
	SetNetwork(network interface{})
	Close()
	Kill()
	RequestLivenessCheck()
}

// Engine creates IKE sessions. A concrete implementation is supplied by the
// embedding process; this module only ever calls through this interface.
type Engine interface {
	CreateIkeSession(
		ctx context.Context,
		params SessionParams,
		childParams ChildSessionParams,
		ikeCb IkeCallback,
		childCb ChildCallback,
	) (Session, error)
}
