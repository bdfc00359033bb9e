package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// sounding analysis pipeline.
type Metrics struct {
	SoundingsFetched  prometheus.Counter
	FetchErrors       prometheus.Counter
	ParseErrors       prometheus.Counter
	AnalysesPublished prometheus.Counter
	PublishErrors     prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Parse/profile quality metrics.
	RecordsDropped    prometheus.Counter
	SoundingLevels    prometheus.Histogram
	LCLIterations     prometheus.Histogram
	LCLNonConvergence prometheus.Counter

	// Analysis outcome metrics. The energy gauges are only set when the
	// profile has a defined value; an undefined (NaN) result leaves them
	// untouched and increments EnergyUndefined instead.
	AnalysisDuration prometheus.Histogram
	CapeJoules       prometheus.Gauge
	CinJoules        prometheus.Gauge
	EnergyUndefined  prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		SoundingsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skewt",
			Name:      "soundings_fetched_total",
			Help:      "Total raw sounding feeds retrieved from the source.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skewt",
			Name:      "fetch_errors_total",
			Help:      "Total failed attempts to retrieve the raw feed.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skewt",
			Name:      "parse_errors_total",
			Help:      "Total feeds rejected as empty or malformed.",
		}),
		AnalysesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skewt",
			Name:      "analyses_published_total",
			Help:      "Total completed analyses handed to the publisher.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skewt",
			Name:      "publish_errors_total",
			Help:      "Total publisher failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "skewt",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		RecordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skewt",
			Name:      "records_dropped_total",
			Help:      "Raw records dropped during validation (sentinel, malformed, inconsistent).",
		}),
		SoundingLevels: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skewt",
			Name:      "sounding_levels",
			Help:      "Valid levels per parsed sounding.",
			Buckets:   []float64{1, 5, 10, 20, 40, 60, 80, 100, 150, 200},
		}),
		LCLIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skewt",
			Name:      "lcl_solver_iterations",
			Help:      "Bisection iterations used to locate the LCL.",
			Buckets:   []float64{1, 5, 10, 15, 20, 25, 30, 40, 50},
		}),
		LCLNonConvergence: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skewt",
			Name:      "lcl_nonconvergence_total",
			Help:      "LCL solves that hit the iteration cap and used the best estimate.",
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skewt",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of one parse-profile-integrate cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		CapeJoules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "skewt",
			Name:      "cape_joules_per_kg",
			Help:      "CAPE of the latest analysis, when defined.",
		}),
		CinJoules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "skewt",
			Name:      "cin_joules_per_kg",
			Help:      "CIN of the latest analysis, when defined.",
		}),
		EnergyUndefined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skewt",
			Name:      "energy_undefined_total",
			Help:      "Analyses whose profile was never positively buoyant (no CAPE/CIN value).",
		}),
	}

	prometheus.MustRegister(
		m.SoundingsFetched,
		m.FetchErrors,
		m.ParseErrors,
		m.AnalysesPublished,
		m.PublishErrors,
		m.PipelineRunning,
		m.RecordsDropped,
		m.SoundingLevels,
		m.LCLIterations,
		m.LCLNonConvergence,
		m.AnalysisDuration,
		m.CapeJoules,
		m.CinJoules,
		m.EnergyUndefined,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can instantiate as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SoundingsFetched:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "skewt", Name: "soundings_fetched_total"}),
		FetchErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "skewt", Name: "fetch_errors_total"}),
		ParseErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "skewt", Name: "parse_errors_total"}),
		AnalysesPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "skewt", Name: "analyses_published_total"}),
		PublishErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "skewt", Name: "publish_errors_total"}),
		PipelineRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "skewt", Name: "pipeline_running"}),
		RecordsDropped:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "skewt", Name: "records_dropped_total"}),
		SoundingLevels:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "skewt", Name: "sounding_levels"}),
		LCLIterations:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "skewt", Name: "lcl_solver_iterations"}),
		LCLNonConvergence: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "skewt", Name: "lcl_nonconvergence_total"}),
		AnalysisDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "skewt", Name: "analysis_duration_seconds"}),
		CapeJoules:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "skewt", Name: "cape_joules_per_kg"}),
		CinJoules:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "skewt", Name: "cin_joules_per_kg"}),
		EnergyUndefined:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "skewt", Name: "energy_undefined_total"}),
	}
}
