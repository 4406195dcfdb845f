package epdgapi

import "github.com/datawire-oss/epdgtunnel/internal/ikeerr"

// MetricsSink is the external telemetry collaborator; only its interface
// is specified here, called from the manager's event handlers without this
// module owning a concrete telemetry backend.
type MetricsSink interface {
	OnTunnelOpened(apn string, setupMillis int64)
	OnTunnelClosed(apn string, err *ikeerr.Error)
	OnServerListResolved(txID string, n int, elapsedMillis int64)
}

// NopMetrics discards everything; used as the default when no sink is
// supplied.
type NopMetrics struct{}

func (NopMetrics) OnTunnelOpened(string, int64)           {}
func (NopMetrics) OnTunnelClosed(string, *ikeerr.Error)   {}
func (NopMetrics) OnServerListResolved(string, int, int64) {}
