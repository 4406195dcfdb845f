package manager

import (
	"net"

	"github.com/datawire-oss/epdgtunnel/internal/ikeengine"
	"github.com/datawire-oss/epdgtunnel/internal/ikeerr"
	"github.com/datawire-oss/epdgtunnel/internal/selector"
	"github.com/datawire-oss/epdgtunnel/pkg/epdgapi"
)

// The manager's event loop is driven entirely by messages posted to a
// single channel: the public operations below, plus the asynchronous
// selector/IKE/child events that advance a per-APN state machine. A single
// goroutine reads the channel and type-switches on each message, so no
// mutex is needed to guard the manager's own state.

type cmdBringUp struct {
	tsr      epdgapi.TunnelSetupRequest
	cb       epdgapi.Callback
	metrics  epdgapi.MetricsSink
	accepted chan bool
}

type cmdClose struct {
	apn     string
	force   bool
	cb      epdgapi.Callback
	metrics epdgapi.MetricsSink
	reason  *ikeerr.Error
}

type cmdUpdateNetwork struct {
	network epdgapi.Network
	props   epdgapi.LinkProperties
}

type cmdValidate struct {
	apn string
}

type cmdSetResolveContext struct {
	rctx selector.ResolveContext
}

type evtSelectorResult struct {
	apn   string
	token uint64
	ips   []net.IP
}

type evtSelectorError struct {
	apn   string
	token uint64
	err   *ikeerr.Error
}

type evtIkeOpened struct {
	apn   string
	token uint64
	cfg   ikeengine.SessionConfig
}

type evtIkeClosed struct {
	apn   string
	token uint64
}

type evtIkeClosedException struct {
	apn   string
	token uint64
	err   *ikeerr.Error
}

type evtChildOpened struct {
	apn   string
	token uint64
	cfg   ikeengine.ChildSessionConfig
}

type evtLivenessStatus struct {
	apn    string
	token  uint64
	status ikeengine.LivenessStatus
}
