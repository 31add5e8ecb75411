package session

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts replication session traffic.
type Metrics struct {
	// MessagesSent counts published messages by type.
	MessagesSent *prometheus.CounterVec
	// MessagesReceived counts received messages by type.
	MessagesReceived *prometheus.CounterVec
	// HeartbeatsSent counts heartbeats published on idle sessions.
	HeartbeatsSent prometheus.Counter
	// HeartbeatTimeouts counts sessions closed for silence.
	HeartbeatTimeouts prometheus.Counter
	// WindowProbes counts probes sent while out of credit.
	WindowProbes prometheus.Counter
	// OpenSessions is the number of sessions not yet closed.
	OpenSessions prometheus.Gauge
}

// NewMetrics creates session metrics registered with reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "replication_messages_sent_total",
			Help: "Replication messages published, by message type",
		}, []string{"type"}),
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "replication_messages_received_total",
			Help: "Replication messages received, by message type",
		}, []string{"type"}),
		HeartbeatsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "replication_heartbeats_sent_total",
			Help: "Heartbeats published on idle sessions",
		}),
		HeartbeatTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "replication_heartbeat_timeouts_total",
			Help: "Sessions closed because the peer stayed silent for two heartbeat intervals",
		}),
		WindowProbes: factory.NewCounter(prometheus.CounterOpts{
			Name: "replication_window_probes_total",
			Help: "Window probes sent while waiting for send credit",
		}),
		OpenSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "replication_open_sessions",
			Help: "Replication sessions currently open",
		}),
	}
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// DefaultMetrics returns metrics registered with the default Prometheus
// registerer.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}
