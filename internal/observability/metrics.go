package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL
// runs.
type Metrics struct {
	ObservationsExtracted *prometheus.CounterVec // labels: source
	RecordsAccepted       prometheus.Counter
	RecordsRejected       *prometheus.CounterVec // labels: stage, reason
	RecordsLoaded         prometheus.Counter
	LoadFailures          prometheus.Counter
	RunActive             prometheus.Gauge

	CompletenessScore prometheus.Histogram
	RunDuration       prometheus.Histogram
}

// NewMetrics creates and registers all run metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ObservationsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "observations_extracted_total",
			Help:      "Raw observations read per source.",
		}, []string{"source"}),
		RecordsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "records_accepted_total",
			Help:      "Records that passed harmonization and validation.",
		}),
		RecordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "records_rejected_total",
			Help:      "Records dropped, by pipeline stage and reason.",
		}, []string{"stage", "reason"}),
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "records_loaded_total",
			Help:      "Documents written to the measurement store.",
		}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "load_failures_total",
			Help:      "Documents the store refused.",
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "run_active",
			Help:      "1 while a run is processing, 0 otherwise.",
		}),
		CompletenessScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "completeness_score",
			Help:      "Completeness score distribution of accepted records.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-transform-load run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}

	prometheus.MustRegister(
		m.ObservationsExtracted,
		m.RecordsAccepted,
		m.RecordsRejected,
		m.RecordsLoaded,
		m.LoadFailures,
		m.RunActive,
		m.CompletenessScore,
		m.RunDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with no registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObservationsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_etl", Name: "observations_extracted_total"}, []string{"source"}),
		RecordsAccepted:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "records_accepted_total"}),
		RecordsRejected:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_etl", Name: "records_rejected_total"}, []string{"stage", "reason"}),
		RecordsLoaded:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "records_loaded_total"}),
		LoadFailures:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "load_failures_total"}),
		RunActive:             prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_etl", Name: "run_active"}),
		CompletenessScore:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weather_etl", Name: "completeness_score"}),
		RunDuration:           prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weather_etl", Name: "run_duration_seconds"}),
	}
}
