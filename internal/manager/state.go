package manager

import (
	"net"
	"time"

	"github.com/datawire-oss/epdgtunnel/internal/ikeengine"
	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

// stateKind is one state of the per-APN state machine.
type stateKind int

const (
	stateResolving stateKind = iota
	stateConnecting
	stateOpen
	stateClosing
	stateFailed
)

func (k stateKind) String() string {
	switch k {
	case stateResolving:
		return "RESOLVING"
	case stateConnecting:
		return "CONNECTING"
	case stateOpen:
		return "OPEN"
	case stateClosing:
		return "CLOSING"
	case stateFailed:
		return "FAILED"
	default:
		return "IDLE"
	}
}

// apnState is the manager's working record for one APN's in-progress or
// open tunnel. A Manager keeps one entry per APN that is not IDLE; IDLE
// APNs simply have no entry.
type apnState struct {
	kind stateKind

	tsr     epdgapi.TunnelSetupRequest
	cb      epdgapi.Callback
	metrics epdgapi.MetricsSink
	token   uint64

	// candidates/cursor support the exclusion-disabled iteration mode:
	// the manager walks this list itself instead of re-resolving.
	candidates []net.IP
	cursor     int

	boundEpdg net.IP

	// emergencyFirstAttempt is set while the manager is trying the same
	// ePDG as the normal tunnel for an emergency session (the affinity
	// rule); it is cleared once that attempt succeeds or a follow-up
	// selection has been started.
	emergencyFirstAttempt bool

	ikeOpened bool
	childCfg  *ikeengine.ChildSessionConfig

	// closeCallback/closeMetrics are set by closeTunnel; when nil, a
	// terminal event reports back through the original bring-up cb.
	closeCallback epdgapi.Callback
	closeMetrics  epdgapi.MetricsSink
	closeReason   *ikeerr.Error

	lastValidation epdgapi.NetworkValidationState
	validationSet  bool

	startedAt time.Time // set at RESOLVING entry, for OnTunnelOpened's setupMillis
}
