package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Dataset load metrics.
	DatasetRows         prometheus.Gauge
	DatasetDates        prometheus.Gauge
	DatasetRegions      prometheus.Gauge
	DatasetLoadDuration prometheus.Histogram

	// Chart request metrics.
	ChartRequests      *prometheus.CounterVec   // labels: kind={cases,ratio,map}, outcome={success,error,empty}
	ChartBuildDuration *prometheus.HistogramVec // labels: kind

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,negative_hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge

	// Snapshot export metrics.
	SnapshotsProduced prometheus.Counter
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_dashboard",
			Name:      "dataset_rows",
			Help:      "Observations in the loaded dataset.",
		}),
		DatasetDates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_dashboard",
			Name:      "dataset_dates",
			Help:      "Length of the shared date axis.",
		}),
		DatasetRegions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_dashboard",
			Name:      "dataset_regions",
			Help:      "Distinct selectable region names.",
		}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "covid_dashboard",
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of the startup fetch and parse of the case dataset.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		ChartRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "chart_requests_total",
			Help:      "Chart payload requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ChartBuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "covid_dashboard",
			Name:      "chart_build_duration_seconds",
			Help:      "Duration of one extract-window-smooth-transform pass.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"kind"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "covid_dashboard",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_dashboard",
			Name:      "geocode_enabled",
			Help:      "1 when map points are geocoded, 0 otherwise.",
		}),
		SnapshotsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_dashboard",
			Name:      "snapshots_produced_total",
			Help:      "Series snapshot messages written to the snapshot topic.",
		}),
	}

	prometheus.MustRegister(
		m.DatasetRows,
		m.DatasetDates,
		m.DatasetRegions,
		m.DatasetLoadDuration,
		m.ChartRequests,
		m.ChartBuildDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.SnapshotsProduced,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DatasetRows:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "covid_dashboard", Name: "dataset_rows"}),
		DatasetDates:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "covid_dashboard", Name: "dataset_dates"}),
		DatasetRegions:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "covid_dashboard", Name: "dataset_regions"}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "covid_dashboard", Name: "dataset_load_duration_seconds"}),
		ChartRequests:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "covid_dashboard", Name: "chart_requests_total"}, []string{"kind", "outcome"}),
		ChartBuildDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "covid_dashboard", Name: "chart_build_duration_seconds"}, []string{"kind"}),
		GeocodeRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "covid_dashboard", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "covid_dashboard", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "covid_dashboard", Name: "geocode_api_duration_seconds"}),
		GeocodeEnabled:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "covid_dashboard", Name: "geocode_enabled"}),
		SnapshotsProduced:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "covid_dashboard", Name: "snapshots_produced_total"}),
	}
}
