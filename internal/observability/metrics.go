package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingest pipeline.
type Metrics struct {
	ReadingsAccepted   prometheus.Counter
	AuthFailures       *prometheus.CounterVec // labels: reason={missing_credentials,unknown_device,signature_mismatch}
	ValidationFailures prometheus.Counter
	AlertsCreated      *prometheus.CounterVec // labels: type={fire,warning}
	PersistenceErrors  prometheus.Counter
	PublishErrors      prometheus.Counter
	IngestDuration     prometheus.Histogram
	NodesTracked       prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReadingsAccepted,
		m.AuthFailures,
		m.ValidationFailures,
		m.AlertsCreated,
		m.PersistenceErrors,
		m.PublishErrors,
		m.IngestDuration,
		m.NodesTracked,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_telemetry",
			Name:      "readings_accepted_total",
			Help:      "Total readings that passed authentication and validation.",
		}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire_telemetry",
			Name:      "auth_failures_total",
			Help:      "Rejected readings by authentication failure reason.",
		}, []string{"reason"}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_telemetry",
			Name:      "validation_failures_total",
			Help:      "Readings rejected for missing or malformed fields.",
		}),
		AlertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire_telemetry",
			Name:      "alerts_created_total",
			Help:      "Alerts raised by the trigger policy, by alert type.",
		}, []string{"type"}),
		PersistenceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_telemetry",
			Name:      "persistence_errors_total",
			Help:      "Failed best-effort writes to the durable history store.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_telemetry",
			Name:      "publish_errors_total",
			Help:      "Failed best-effort publishes of accepted readings.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wildfire_telemetry",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of the synchronous ingest path (verify through alert evaluation).",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		NodesTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire_telemetry",
			Name:      "nodes_tracked",
			Help:      "Distinct sensor nodes seen since startup.",
		}),
	}
}
