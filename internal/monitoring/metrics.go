// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus instruments for the ingestion pipelines.
type Metrics struct {
	registry *prometheus.Registry

	PagesFetched  *prometheus.CounterVec
	FetchErrors   *prometheus.CounterVec
	ItemsUpdated  *prometheus.CounterVec
	ItemsSkipped  *prometheus.CounterVec
	BatchDuration *prometheus.HistogramVec
}

// NewMetrics creates a metrics set on a private registry so tests can
// instantiate it repeatedly without duplicate-registration panics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventharvest",
			Name:      "pages_fetched_total",
			Help:      "Pages fetched, labelled by fetch mode.",
		}, []string{"mode"}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventharvest",
			Name:      "fetch_errors_total",
			Help:      "Fetch failures, labelled by error kind.",
		}, []string{"kind"}),
		ItemsUpdated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventharvest",
			Name:      "items_updated_total",
			Help:      "Store writes performed by batch pipelines.",
		}, []string{"pipeline"}),
		ItemsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventharvest",
			Name:      "items_skipped_total",
			Help:      "Items skipped by batch pipelines, labelled by reason.",
		}, []string{"pipeline", "reason"}),
		BatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eventharvest",
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock duration of batch pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"pipeline"}),
	}
}

// Handler returns an HTTP handler exposing the registry in the standard
// prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
