package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// forecast grid engine.
type Metrics struct {
	StormsProcessed    prometheus.Counter
	BuffersRasterized  prometheus.Counter
	InitTimesCompleted prometheus.Counter
	GridsPublished     prometheus.Counter
	BuildErrors        prometheus.Counter
	EngineRunning      prometheus.Gauge

	// Per-initial-time grid construction metrics.
	GridBuildDuration prometheus.Histogram
	GridCellCount     prometheus.Histogram

	SmoothingDuration *prometheus.HistogramVec // label: method={gaussian,cressman}
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		StormsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_grids",
			Name:      "storms_processed_total",
			Help:      "Total storm objects consumed from the input table.",
		}),
		BuffersRasterized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_grids",
			Name:      "buffers_rasterized_total",
			Help:      "Total distance buffers converted to grid membership.",
		}),
		InitTimesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_grids",
			Name:      "init_times_completed_total",
			Help:      "Total initial times for which a forecast grid was finalized.",
		}),
		GridsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_grids",
			Name:      "grids_published_total",
			Help:      "Total forecast grids written to the sink topic.",
		}),
		BuildErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_grids",
			Name:      "build_errors_total",
			Help:      "Total grid construction failures.",
		}),
		EngineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_grids",
			Name:      "engine_running",
			Help:      "1 while a grid construction run is active, 0 otherwise.",
		}),
		GridBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_grids",
			Name:      "grid_build_duration_seconds",
			Help:      "Time to build the forecast grid for one initial time.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		GridCellCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_grids",
			Name:      "grid_cell_count",
			Help:      "Number of cells in the shared forecast grid.",
			Buckets:   prometheus.ExponentialBuckets(1e4, 4, 8),
		}),
		SmoothingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storm_grids",
			Name:      "smoothing_duration_seconds",
			Help:      "Time spent smoothing one finalized grid.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
	}

	prometheus.MustRegister(
		m.StormsProcessed,
		m.BuffersRasterized,
		m.InitTimesCompleted,
		m.GridsPublished,
		m.BuildErrors,
		m.EngineRunning,
		m.GridBuildDuration,
		m.GridCellCount,
		m.SmoothingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		StormsProcessed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_grids", Name: "storms_processed_total"}),
		BuffersRasterized:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_grids", Name: "buffers_rasterized_total"}),
		InitTimesCompleted: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_grids", Name: "init_times_completed_total"}),
		GridsPublished:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_grids", Name: "grids_published_total"}),
		BuildErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_grids", Name: "build_errors_total"}),
		EngineRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "storm_grids", Name: "engine_running"}),
		GridBuildDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "storm_grids", Name: "grid_build_duration_seconds"}),
		GridCellCount:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "storm_grids", Name: "grid_cell_count"}),
		SmoothingDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "storm_grids", Name: "smoothing_duration_seconds"}, []string{"method"}),
	}
}
