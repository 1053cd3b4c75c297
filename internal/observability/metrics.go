package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the batch and quality metrics of one process run.
type Metrics struct {
	TableRows     *prometheus.GaugeVec
	TableDuration *prometheus.HistogramVec
	TableLoads    *prometheus.CounterVec
	Batches       *prometheus.CounterVec
	CheckFindings *prometheus.GaugeVec
	CheckErrors   prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics registers every collector on a private registry so runs never
// leak into the global default one.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.TableRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "salesdw",
			Subsystem: "silver",
			Name:      "table_rows",
			Help:      "Rows written to each silver table by the last batch",
		},
		[]string{"table"},
	)

	m.TableDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "salesdw",
			Subsystem: "silver",
			Name:      "table_load_duration_seconds",
			Help:      "Time spent clearing and reloading a silver table",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"table"},
	)

	m.TableLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salesdw",
			Subsystem: "silver",
			Name:      "table_loads_total",
			Help:      "Table loads by final status",
		},
		[]string{"table", "status"},
	)

	m.Batches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salesdw",
			Name:      "batches_total",
			Help:      "Pipeline batches by outcome",
		},
		[]string{"outcome"}, // "succeeded", "partial", "failed"
	)

	m.CheckFindings = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "salesdw",
			Subsystem: "quality",
			Name:      "check_findings",
			Help:      "Violations reported by each quality check",
		},
		[]string{"check", "layer", "severity"},
	)

	m.CheckErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salesdw",
			Subsystem: "quality",
			Name:      "check_errors_total",
			Help:      "Quality checks whose query could not run",
		},
	)

	m.registry.MustRegister(
		m.TableRows,
		m.TableDuration,
		m.TableLoads,
		m.Batches,
		m.CheckFindings,
		m.CheckErrors,
	)

	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTable records one finished table load.
func (m *Metrics) ObserveTable(table, status string, rows int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TableLoads.WithLabelValues(table, status).Inc()
	m.TableDuration.WithLabelValues(table).Observe(elapsed.Seconds())
	if status == "loaded" {
		m.TableRows.WithLabelValues(table).Set(float64(rows))
	}
}

// ObserveBatch counts a finished batch by outcome.
func (m *Metrics) ObserveBatch(outcome string) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(outcome).Inc()
}

// ObserveCheck records the finding count of one check. A check whose query
// failed only increments CheckErrors.
func (m *Metrics) ObserveCheck(check, layer, severity string, findings int64, failed bool) {
	if m == nil {
		return
	}
	if failed {
		m.CheckErrors.Inc()
		return
	}
	m.CheckFindings.WithLabelValues(check, layer, severity).Set(float64(findings))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
