package scheduling

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for follow-up scheduling.
type Metrics struct {
	Requests            *prometheus.CounterVec
	Attempts            *prometheus.CounterVec
	Retries             prometheus.Counter
	Duration            prometheus.Histogram
	CredentialRefreshes *prometheus.CounterVec
}

// NewMetrics registers the scheduling metrics once per process.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			Requests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "medtriage_scheduling_requests_total",
					Help: "Scheduling requests by outcome (booked, duplicate, failed)",
				},
				[]string{"outcome"},
			),
			Attempts: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "medtriage_scheduling_attempts_total",
					Help: "Calendar booking attempts by result kind",
				},
				[]string{"result"},
			),
			Retries: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "medtriage_scheduling_retries_total",
					Help: "Booking attempts retried after a transient failure",
				},
			),
			Duration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "medtriage_scheduling_duration_seconds",
					Help:    "Time to complete a scheduling request",
					Buckets: prometheus.DefBuckets,
				},
			),
			CredentialRefreshes: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "medtriage_scheduling_credential_events_total",
					Help: "Credential refreshes and authorizations by result",
				},
				[]string{"result"},
			),
		}
	})
	return globalMetrics
}
