package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tsugie"

// Metrics holds the Prometheus counters, histograms, and gauges for
// every pipeline stage. Each stage's CLI pulls out only the fields it
// needs; fields are grouped by stage below in the same struct-of-
// primitives shape the teacher uses.
type Metrics struct {
	// Fusion stage.
	FusionGroupsTotal    prometheus.Counter
	FusionRecordsTotal   *prometheus.CounterVec // labels: outcome={merged,kept,dropped}
	FusionRunDuration    prometheus.Histogram

	// Geocoder collaborator.
	GeocodeRequests    *prometheus.CounterVec   // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge

	// Content enrichment stage.
	ContentFetchDuration prometheus.Histogram
	ContentFetchTotal    *prometheus.CounterVec // labels: outcome={ok,partial,empty,cached}
	PolishBackendErrors  *prometheus.CounterVec // labels: backend={openai,codex}

	// Scoring stage.
	ScoreRequestsTotal *prometheus.CounterVec // labels: source={ai,fallback}
	ScoreAPIDuration   prometheus.Histogram

	// Export stage.
	ExportPayloadBytes *prometheus.GaugeVec // labels: payload={spatial,image}
	ExportRunDuration  prometheus.Histogram

	PipelineRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the
// default Prometheus registry.
func NewMetrics() *Metrics {
	m := build()
	prometheus.MustRegister(
		m.FusionGroupsTotal,
		m.FusionRecordsTotal,
		m.FusionRunDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.ContentFetchDuration,
		m.ContentFetchTotal,
		m.PolishBackendErrors,
		m.ScoreRequestsTotal,
		m.ScoreAPIDuration,
		m.ExportPayloadBytes,
		m.ExportRunDuration,
		m.PipelineRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics unregistered, so multiple tests
// in the same process never collide on "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return build()
}

func build() *Metrics {
	return &Metrics{
		FusionGroupsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fusion_groups_total",
			Help:      "Total cross-source event groups produced by a fusion run.",
		}),
		FusionRecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fusion_records_total",
			Help:      "Raw records processed by fusion, by outcome.",
		}, []string{"outcome"}),
		FusionRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fusion_run_duration_seconds",
			Help:      "Duration of a complete fusion run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when the geocoder collaborator is reachable, 0 otherwise.",
		}),
		ContentFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "content_fetch_duration_seconds",
			Help:      "Duration of one source page fetch, including retries.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		ContentFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_fetch_total",
			Help:      "Content enrichment outcomes per event.",
		}, []string{"outcome"}),
		PolishBackendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polish_backend_errors_total",
			Help:      "Narrative polish backend failures, by backend.",
		}, []string{"backend"}),
		ScoreRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_requests_total",
			Help:      "Heat/surprise scoring outcomes, by source.",
		}, []string{"source"}),
		ScoreAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_api_duration_seconds",
			Help:      "Scoring backend request duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		ExportPayloadBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "export_payload_bytes",
			Help:      "Size of the most recently built export payload, by payload kind.",
		}, []string{"payload"}),
		ExportRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_run_duration_seconds",
			Help:      "Duration of a complete export run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline stage command is running, 0 once it has finished.",
		}),
	}
}
