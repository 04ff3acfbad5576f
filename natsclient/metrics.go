package natsclient

import (
	"time"

	"github.com/c360/replaystream/metric"
)

// connMetrics bridges connection state changes into the client-wide core
// metrics. All methods are safe with a nil receiver guard at the call
// sites; the struct itself holds no state of its own.
type connMetrics struct {
	core *metric.Metrics
}

func (cm *connMetrics) recordStatus(status ConnectionStatus) {
	cm.core.RecordNATSStatus(status == StatusConnected)

	switch status {
	case StatusCircuitOpen:
		cm.core.RecordCircuitBreakerState(1)
	case StatusConnected:
		cm.core.RecordCircuitBreakerState(0)
	case StatusDisconnected, StatusConnecting, StatusReconnecting:
		// Circuit state unchanged.
	}
}

func (cm *connMetrics) recordReconnect() {
	cm.core.RecordNATSReconnect()
}

func (cm *connMetrics) recordRTT(rtt time.Duration) {
	cm.core.RecordNATSRTT(rtt)
}
