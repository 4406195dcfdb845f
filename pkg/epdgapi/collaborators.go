package epdgapi

import (
	"net"

	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
)

// Network is the opaque underlying-network handle threaded through
// BringUpTunnel/UpdateNetwork. It is supplied by the embedding process;
// this module never constructs one itself.
type Network interface {
	// ID distinguishes one network handle from another for logging and
	// for "same network" comparisons.
	ID() string
	// Validated reports whether the platform currently considers this
	// network validated (has working connectivity), consulted by the
	// "validate underlying network on no response" action.
	Validated() bool
}

// NetworkCollaborator reports connectivity probe results back to the
// platform: IKE_INIT_TIMEOUT/IKE_DPD_TIMEOUT/IKE_MOBILITY_TIMEOUT/
// IKE_NETWORK_LOST may trigger a connectivity probe on the underlying
// network when the carrier config and feature flag agree.
type NetworkCollaborator interface {
	ReportNetworkConnectivity(network Network, ok bool)
}

// ErrorPolicy is the persisted error-policy collaborator: it records
// reportable errors (with optional decoded backoff) and NO_ERROR for
// voluntary closes, and applies its own backoff bookkeeping that this
// module never inspects.
type ErrorPolicy interface {
	ReportError(apn string, err *ikeerr.Error, backoffSeconds int, hasBackoff bool)
}

// PcoSignal is the decoded form of a CARRIER_SIGNAL_PCO_VALUE intent.
type PcoSignal struct {
	APNType int
	PcoID   int
	Value   []byte
}

// IMSApnType is the APN_TYPE value that gates PCO signal acceptance.
const IMSApnType = 1

// LinkProperties is the minimal per-network reachability/address view used
// by the manager's mobility handling and the selector's network probe. A
// concrete adapter over the platform's real network stack is supplied by
// the embedding process.
type LinkProperties interface {
	LocalAddresses() []net.IP
	IsReachable(addr net.IP) bool
}
