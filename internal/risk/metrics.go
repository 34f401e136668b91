package risk

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for risk classification.
type Metrics struct {
	Classifications *prometheus.CounterVec
	Fallbacks       *prometheus.CounterVec
}

// NewMetrics registers the risk metrics once per process.
//
//   - medtriage_risk_classifications_total{strategy,tier}
//   - medtriage_risk_fallbacks_total{primary}
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			Classifications: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "medtriage_risk_classifications_total",
					Help: "Classifications made through a fallback classifier, by strategy used and tier",
				},
				[]string{"strategy", "tier"},
			),
			Fallbacks: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "medtriage_risk_fallbacks_total",
					Help: "Times the primary classifier was unavailable and the fallback was used",
				},
				[]string{"primary"},
			),
		}
	})
	return globalMetrics
}
