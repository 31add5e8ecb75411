package assured

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts assured update outcomes.
type Metrics struct {
	// Outcomes counts final acks by mode and outcome.
	Outcomes *prometheus.CounterVec
	// ServerTimeouts counts expected servers that did not ack in time.
	ServerTimeouts *prometheus.CounterVec
	// Waiting is the number of updates waiting for acks.
	Waiting prometheus.Gauge
}

// NewMetrics creates assured metrics registered with reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "replication_assured_acks_total",
			Help: "Final acks sent for assured updates, by mode and outcome",
		}, []string{"mode", "outcome"}),
		ServerTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "replication_assured_server_timeouts_total",
			Help: "Expected servers that did not ack an assured update in time, by mode",
		}, []string{"mode"}),
		Waiting: factory.NewGauge(prometheus.GaugeOpts{
			Name: "replication_assured_waiting_updates",
			Help: "Assured updates waiting for acks",
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
