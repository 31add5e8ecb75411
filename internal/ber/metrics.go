package ber

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts lenient decoding events of stream readers.
type Metrics struct {
	// TrailingBytes counts bytes discarded at the end of a sequence scope.
	TrailingBytes prometheus.Counter
	// TrailingDrains counts scopes that ended with unread bytes.
	TrailingDrains prometheus.Counter
	// InvalidUTF8 counts octet strings decoded with the byte-per-rune fallback.
	InvalidUTF8 prometheus.Counter
}

// NewMetrics creates reader metrics registered with reg. A nil reg leaves
// them unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TrailingBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "ber_trailing_bytes_drained_total",
			Help: "Bytes left unread at the end of a SEQUENCE or SET and discarded",
		}),
		TrailingDrains: factory.NewCounter(prometheus.CounterOpts{
			Name: "ber_trailing_drains_total",
			Help: "SEQUENCE or SET scopes closed with unread trailing bytes",
		}),
		InvalidUTF8: factory.NewCounter(prometheus.CounterOpts{
			Name: "ber_invalid_utf8_strings_total",
			Help: "Octet strings that were not valid UTF-8 and were decoded byte by byte",
		}),
	}
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// DefaultMetrics returns metrics registered with the default Prometheus
// registerer. Readers created without WithMetrics report here.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}
