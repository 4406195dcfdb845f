// Package ikeerr implements the IwlanError taxonomy of the ePDG tunnel
// subsystem: a small tagged union with a failure-class accessor used to
// decide exclusion-set membership and error-policy reporting.
package ikeerr

import "fmt"

// Kind identifies the taxonomy member. The zero value is NoError.
type Kind int

const (
	NoError Kind = iota
	SimNotReady
	ServerSelectionFailed
	AddressOnlyIPv6Allowed
	AddressOnlyIPv4Allowed
	IkeProtocolException
	IkeInternalException
	IkeNetworkLost
	IkeSessionClosedBeforeChildSessionOpened
	IkeInitTimeout
	IkeDpdTimeout
	IkeMobilityTimeout
	TunnelNotFound
)

func (k Kind) String() string {
	switch k {
	case NoError:
		return "NO_ERROR"
	case SimNotReady:
		return "SIM_NOT_READY"
	case ServerSelectionFailed:
		return "EPDG_SELECTOR_SERVER_SELECTION_FAILED"
	case AddressOnlyIPv6Allowed:
		return "EPDG_ADDRESS_ONLY_IPV6_ALLOWED"
	case AddressOnlyIPv4Allowed:
		return "EPDG_ADDRESS_ONLY_IPV4_ALLOWED"
	case IkeProtocolException:
		return "IKE_PROTOCOL_EXCEPTION"
	case IkeInternalException:
		return "IKE_INTERNAL_EXCEPTION"
	case IkeNetworkLost:
		return "IKE_NETWORK_LOST"
	case IkeSessionClosedBeforeChildSessionOpened:
		return "IKE_SESSION_CLOSED_BEFORE_CHILD_SESSION_OPENED"
	case IkeInitTimeout:
		return "IKE_INIT_TIMEOUT"
	case IkeDpdTimeout:
		return "IKE_DPD_TIMEOUT"
	case IkeMobilityTimeout:
		return "IKE_MOBILITY_TIMEOUT"
	case TunnelNotFound:
		return "TUNNEL_NOT_FOUND"
	default:
		return fmt.Sprintf("IKE_ERROR(%d)", int(k))
	}
}

// Class is the failure classification that determines which errors feed the
// selector's ExclusionSet: only Network and Protocol classes do.
type Class int

const (
	ClassNone Class = iota
	ClassNetwork
	ClassProtocol
	ClassInternal
)

// Backoff carries a decoded 3GPP backoff-timer notify payload.
type Backoff struct {
	Duration Unit
	Value    int
	Deactivate bool
}

// Unit is one of the 3GPP backoff-timer units (top 3 bits of the payload).
type Unit int

const (
	Unit10Min Unit = iota
	Unit1Hour
	Unit10Hour
	Unit2Sec
	Unit30Sec
	Unit1Min
	Unit1HourAlt
	UnitDeactivate
)

// Error is the concrete IwlanError. It is always constructed through one of
// the New* helpers so that Class() stays consistent with Kind.
type Error struct {
	kind    Kind
	cause   error
	code    int    // IKE_PROTOCOL_EXCEPTION error code
	data    []byte // IKE_PROTOCOL_EXCEPTION notify data
	backoff *Backoff
}

func (e *Error) Error() string {
	if e == nil || e.kind == NoError {
		return "no error"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.kind, e.cause)
	}
	return e.kind.String()
}

// Unwrap exposes the underlying collaborator cause, so errors.Is/As can see
// through the Kind tag to whatever produced it.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func (e *Error) Kind() Kind {
	if e == nil {
		return NoError
	}
	return e.kind
}

func (e *Error) ProtocolCode() int {
	if e == nil {
		return 0
	}
	return e.code
}

func (e *Error) ProtocolData() []byte {
	if e == nil {
		return nil
	}
	return e.data
}

func (e *Error) Backoff() *Backoff {
	if e == nil {
		return nil
	}
	return e.backoff
}

// Class classifies this error to drive ExclusionSet updates: only Network
// and Protocol classes are external/peer-attributable.
func (e *Error) Class() Class {
	if e == nil {
		return ClassNone
	}
	switch e.kind {
	case IkeInitTimeout, IkeDpdTimeout, IkeMobilityTimeout:
		return ClassNetwork
	case IkeProtocolException:
		return ClassProtocol
	case IkeNetworkLost, IkeInternalException:
		return ClassInternal
	default:
		return ClassInternal
	}
}

func NoErr() *Error { return &Error{kind: NoError} }

func New(kind Kind) *Error { return &Error{kind: kind} }

func Newf(kind Kind, cause error) *Error { return &Error{kind: kind, cause: cause} }

// NewProtocolException builds IKE_PROTOCOL_EXCEPTION, decoding a 3GPP
// backoff-timer notify payload when one is present. A notify payload is a
// single byte: top 3 bits select the unit, bottom 5 bits the value.
func NewProtocolException(code int, data []byte) *Error {
	e := &Error{kind: IkeProtocolException, code: code, data: data}
	if len(data) >= 1 {
		e.backoff = decodeBackoff(data[0])
	}
	return e
}

func decodeBackoff(b byte) *Backoff {
	unit := Unit((b >> 5) & 0x7)
	value := int(b & 0x1F)
	if unit == UnitDeactivate {
		return &Backoff{Duration: unit, Value: value, Deactivate: true}
	}
	return &Backoff{Duration: unit, Value: value}
}

// Seconds converts a decoded Backoff into a duration in seconds. Deactivate
// reports zero and ok=false, signalling "no backoff reported".
func (b *Backoff) Seconds() (secs int, ok bool) {
	if b == nil || b.Deactivate {
		return 0, false
	}
	switch b.Duration {
	case Unit10Min:
		return b.Value * 10 * 60, true
	case Unit1Hour, Unit1HourAlt:
		return b.Value * 60 * 60, true
	case Unit10Hour:
		return b.Value * 10 * 60 * 60, true
	case Unit2Sec:
		return b.Value * 2, true
	case Unit30Sec:
		return b.Value * 30, true
	case Unit1Min:
		return b.Value * 60, true
	default:
		return 0, false
	}
}

// IsVoluntary reports whether this is the sentinel "no error" used when
// reporting a caller-initiated close.
func IsVoluntary(e *Error) bool {
	return e == nil || e.Kind() == NoError
}
