package telemetry

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus primitives for external calls, audit writes and
// message handlers.
type Metrics struct {
	externalCalls    *prometheus.CounterVec
	externalDuration *prometheus.HistogramVec
	auditWrites      *prometheus.CounterVec
	handlerDuration  *prometheus.HistogramVec
	handlerErrors    *prometheus.CounterVec
}

// NewMetrics registers metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer registers metrics on reg. Tests pass a fresh
// registry to avoid duplicate registration panics.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	externalCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "okonomi_external_calls_total",
		Help: "Calls to the accounting system by operation and outcome.",
	}, []string{"operation", "outcome"})

	externalDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "okonomi_external_call_duration_seconds",
		Help:    "Accounting system roundtrip latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	auditWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "okonomi_audit_writes_total",
		Help: "Audit hendelse writes by kind and status.",
	}, []string{"kind", "status"})

	handlerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "okonomi_message_handler_duration_seconds",
		Help:    "Message handler durations by subject.",
		Buckets: prometheus.DefBuckets,
	}, []string{"subject", "status"})

	handlerErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "okonomi_message_handler_errors_total",
		Help: "Counts message handler errors by subject.",
	}, []string{"subject"})

	if reg != nil {
		reg.MustRegister(
			externalCalls,
			externalDuration,
			auditWrites,
			handlerDuration,
			handlerErrors,
		)
	}

	return &Metrics{
		externalCalls:    externalCalls,
		externalDuration: externalDuration,
		auditWrites:      auditWrites,
		handlerDuration:  handlerDuration,
		handlerErrors:    handlerErrors,
	}
}

// ObserveExternalCall records an accounting system call and its latency.
func (m *Metrics) ObserveExternalCall(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	op := sanitizeLabel(operation)
	m.externalCalls.WithLabelValues(op, sanitizeLabel(outcome)).Inc()
	m.externalDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordAuditWrite counts audit log appends.
func (m *Metrics) RecordAuditWrite(kind, status string) {
	if m == nil {
		return
	}
	m.auditWrites.WithLabelValues(sanitizeLabel(kind), sanitizeLabel(status)).Inc()
}

// RecordHandler observes handler invocations.
func (m *Metrics) RecordHandler(subject, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.handlerDuration.WithLabelValues(subject, status).Observe(duration.Seconds())
	if status != "success" {
		m.handlerErrors.WithLabelValues(subject).Inc()
	}
}

func sanitizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
