// Package epdgapi holds the caller-facing types: the tunnel setup request,
// callback interface, and link properties delivered when a tunnel opens,
// plus the address-filter/order enums shared with the selector's public
// contract.
package epdgapi

import "net"

// AddressFilter restricts resolution to one address family, or both.
type AddressFilter int

const (
	FilterIPv4 AddressFilter = iota
	FilterIPv6
	FilterIPv4v6
)

// AddressOrder controls how a filtered candidate list is ordered.
type AddressOrder int

const (
	OrderIPv4Preferred AddressOrder = iota
	OrderIPv6Preferred
	OrderSystem
)

// AddressSource tags where a CandidateAddress came from.
type AddressSource int

const (
	SourceStatic AddressSource = iota
	SourcePLMN
	SourcePCO
	SourceCellularLoc
)

func (s AddressSource) String() string {
	switch s {
	case SourceStatic:
		return "STATIC"
	case SourcePLMN:
		return "PLMN"
	case SourcePCO:
		return "PCO"
	case SourceCellularLoc:
		return "CELLULAR_LOC"
	default:
		return "UNKNOWN"
	}
}

// CandidateAddress is one ePDG address produced by the resolution pipeline.
type CandidateAddress struct {
	IP     net.IP
	Source AddressSource
}

// Protocol is the requested PDN type for a TunnelSetupRequest.
type Protocol int

const (
	ProtocolIP Protocol = iota
	ProtocolIPv6
	ProtocolIPv4v6
	ProtocolUnknown
)

// TunnelSetupRequest is the per-APN bring-up request.
type TunnelSetupRequest struct {
	APN           string
	Protocol      Protocol
	IsRoaming     bool
	IsEmergency   bool
	RequestPcscf  bool
	PduSessionID  int
	SrcIPv4       net.IP
	SrcIPv6       net.IP
	SrcIPv6Prefix int
}

// LinkAddress pairs an address with the prefix length it was assigned.
type LinkAddress struct {
	IP     net.IP
	Prefix int
}

// TunnelLinkProperties is delivered to the caller when a tunnel opens.
type TunnelLinkProperties struct {
	InternalAddresses []LinkAddress
	DNSAddresses      []net.IP
	PcscfAddresses    []net.IP
	IfaceName         string
	SliceInfo         []byte
}

// ProtocolType is derived from InternalAddresses.
func (p *TunnelLinkProperties) ProtocolType() Protocol {
	hasV4, hasV6 := false, false
	for _, a := range p.InternalAddresses {
		if a.IP.To4() != nil {
			hasV4 = true
		} else {
			hasV6 = true
		}
	}
	switch {
	case hasV4 && hasV6:
		return ProtocolIPv4v6
	case hasV4:
		return ProtocolIP
	case hasV6:
		return ProtocolIPv6
	default:
		return ProtocolUnknown
	}
}

// Callback is the per-APN delivery interface for tunnel lifecycle events.
type Callback interface {
	OnOpened(apn string, props *TunnelLinkProperties)
	OnClosed(apn string, err error)
	OnNetworkValidationStatusChanged(apn string, state NetworkValidationState)
}

// NetworkValidationState is the external enum liveness checks report to.
type NetworkValidationState int

const (
	ValidationInProgress NetworkValidationState = iota
	ValidationSuccess
	ValidationFailure
)
