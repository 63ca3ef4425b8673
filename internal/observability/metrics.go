package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "covid_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Load metrics.
	Loads              *prometheus.CounterVec // labels: outcome={success,error}
	LoadDuration       prometheus.Histogram
	StageFailures      *prometheus.CounterVec // labels: stage={load,reshape,merge,stats}
	MergedObservations prometheus.Gauge

	// Report metrics.
	Reports        prometheus.Counter
	ReportDuration prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}

	SummariesPublished prometheus.Counter
	SourceBreakerState *prometheus.GaugeVec // labels: source; 0 closed, 1 half-open, 2 open
}

func newMetrics() *Metrics {
	return &Metrics{
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Dataset loads by outcome.",
		}, []string{"outcome"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of a complete fetch, reshape and merge cycle.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Pipeline failures by stage.",
		}, []string{"stage"}),
		MergedObservations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "merged_observations",
			Help:      "Rows in the currently served merged table.",
		}),
		Reports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "State reports computed.",
		}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Time to compute one state report.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
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
		SummariesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      "Report summaries written to Kafka.",
		}),
		SourceBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_breaker_state",
			Help:      "Circuit breaker state per source: 0 closed, 1 half-open, 2 open.",
		}, []string{"source"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Loads,
		m.LoadDuration,
		m.StageFailures,
		m.MergedObservations,
		m.Reports,
		m.ReportDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.SummariesPublished,
		m.SourceBreakerState,
	}
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so repeated
// calls from tests do not panic with "already registered".
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
