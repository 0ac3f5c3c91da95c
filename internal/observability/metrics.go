package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "job_harvester"

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "fetches_total",
		Help:      "Fetch attempts by component and outcome.",
	}, []string{"component", "outcome"})

	fetchRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "fetch_retries_total",
		Help:      "Retries scheduled after a failed fetch.",
	}, []string{"component", "reason"})

	linksDiscoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "links_discovered_total",
		Help:      "Distinct job links merged into a harvest.",
	})

	recordsExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "records_extracted_total",
		Help:      "Job records written to a sink.",
	})

	unitFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "unit_failures_total",
		Help:      "Pages or links dropped after the retry budget ran out.",
	}, []string{"component", "reason"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of harvest and extract runs.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"stage"})
)

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
