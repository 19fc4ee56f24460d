package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the tracking engine.
type Metrics struct {
	Clicks           *prometheus.CounterVec
	Conversions      prometheus.Counter
	Revenue          prometheus.Counter
	PostbackFailures *prometheus.CounterVec
	EventLag         prometheus.Histogram
}

// NewMetrics creates and registers all tracking metrics under the namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Clicks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clicks_total",
				Help:      "Recorded clicks, partitioned by uniqueness",
			},
			[]string{"unique"},
		),
		Conversions: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Attributed conversions",
			},
		),
		Revenue: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "revenue_total",
				Help:      "Total payout revenue attributed",
			},
		),
		PostbackFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "postback_failures_total",
				Help:      "Postbacks rejected, by reason",
			},
			[]string{"reason"},
		),
		EventLag: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_lag_seconds",
				Help:      "Delay between a tracking event and its consumption",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
		),
	}
}
