// Package metrics provides Prometheus metrics definitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scorecardreport"

var (
	// APIRequestDuration tracks outbound API request latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Outbound API request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"api", "method", "status_code"},
	)

	// IncidentsSkipped counts incident payloads that could not be parsed.
	IncidentsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_skipped_total",
			Help:      "Incident payloads skipped because they could not be parsed",
		},
	)

	reportIncidents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "incidents",
			Help:      "Public incidents in the last generated report",
		},
	)

	reportImpactedServices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "impacted_services",
			Help:      "Impacted services in the last generated report",
		},
	)

	reportUnmatchedServices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "unmatched_services",
			Help:      "Impacted services without any matching scorecard in the last generated report",
		},
	)
)

// RecordReport updates report gauges.
func RecordReport(incidents, impacted, unmatched int) {
	reportIncidents.Set(float64(incidents))
	reportImpactedServices.Set(float64(impacted))
	reportUnmatchedServices.Set(float64(unmatched))
}
