package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	Renders        *prometheus.CounterVec   // labels: view
	RenderErrors   *prometheus.CounterVec   // labels: view, kind={data_quality,not_found,io}
	RenderDuration *prometheus.HistogramVec // labels: view

	// Watchdog and alerting.
	DataValid       prometheus.Gauge
	AlertsPublished prometheus.Counter
	AlertErrors     prometheus.Counter
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Renders,
		m.RenderErrors,
		m.RenderDuration,
		m.DataValid,
		m.AlertsPublished,
		m.AlertErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// NewUnregisteredMetrics creates Metrics for processes that never expose
// /metrics, such as the offline render CLI.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Views rendered successfully.",
		}, []string{"view"}),
		RenderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "Views that failed to render, by failure kind.",
		}, []string{"view", "kind"}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent reading data files and building a view.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"view"}),
		DataValid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "data_valid",
			Help:      "1 when the last scheduled validation of the data directory passed, 0 otherwise.",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Increase alerts written to the alert topic.",
		}),
		AlertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_errors_total",
			Help:      "Alert batches that could not be published.",
		}),
	}
}
