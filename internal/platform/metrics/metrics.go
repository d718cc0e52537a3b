// Package metrics defines the Prometheus instruments for the tracing layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the recording and export path.
type Metrics struct {
	RecordsEmitted     prometheus.Counter
	ContractViolations prometheus.Counter
	ScopesCancelled    prometheus.Counter
	ExportFailures     *prometheus.CounterVec
	ExportDuration     prometheus.Histogram
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates and registers all metrics on the given registerer.
// Tests pass a fresh registry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "decisiontrace_records_emitted_total",
			Help: "Total number of decision records emitted to exporters",
		}),
		ContractViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "decisiontrace_contract_violations_total",
			Help: "Total number of recording contract violations (no action, double action, reused identifier)",
		}),
		ScopesCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "decisiontrace_scopes_cancelled_total",
			Help: "Total number of recording scopes abandoned by context cancellation before an action was set",
		}),
		ExportFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "decisiontrace_export_failures_total",
			Help: "Total number of failed exporter appends, labelled by sink",
		}, []string{"sink"}),
		ExportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "decisiontrace_export_duration_seconds",
			Help:    "Time spent fanning a record out to all exporters",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncrementRecordsEmitted increments the emitted-records counter by 1.
func (m *Metrics) IncrementRecordsEmitted() {
	m.RecordsEmitted.Inc()
}

// IncrementContractViolations increments the contract-violations counter by 1.
func (m *Metrics) IncrementContractViolations() {
	m.ContractViolations.Inc()
}

// IncrementScopesCancelled increments the cancelled-scopes counter by 1.
func (m *Metrics) IncrementScopesCancelled() {
	m.ScopesCancelled.Inc()
}

// IncrementExportFailures increments the failure counter for the named sink.
func (m *Metrics) IncrementExportFailures(sink string) {
	m.ExportFailures.WithLabelValues(sink).Inc()
}

// ObserveExportDuration records one fan-out duration in seconds.
func (m *Metrics) ObserveExportDuration(seconds float64) {
	m.ExportDuration.Observe(seconds)
}
