package provisioning

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/wsctl/internal/cloud"
)

// Metric result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Resource action label values.
const (
	ActionCreated = "created"
	ActionExists  = "exists"
	ActionDeleted = "deleted"
	ActionSkipped = "skipped"
)

// Metrics records operation metrics in a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	stepsTotal        *prometheus.CounterVec
	stepDuration      *prometheus.HistogramVec
	resourcesTotal    *prometheus.CounterVec
	waitAttempts      *prometheus.HistogramVec
	resourcesPresent  *prometheus.GaugeVec
}

// NewMetrics creates and registers the metric set.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wsctl",
				Subsystem: "workspace",
				Name:      "operations_total",
				Help:      "Total number of workspace operations by result",
			},
			[]string{"operation", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "wsctl",
				Subsystem: "workspace",
				Name:      "operation_duration_seconds",
				Help:      "Duration of workspace operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4m
			},
			[]string{"operation"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wsctl",
				Subsystem: "workspace",
				Name:      "steps_total",
				Help:      "Total number of executed steps by result",
			},
			[]string{"operation", "step", "result"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "wsctl",
				Subsystem: "workspace",
				Name:      "step_duration_seconds",
				Help:      "Duration of individual steps in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
			},
			[]string{"operation", "step"},
		),
		resourcesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wsctl",
				Subsystem: "backend",
				Name:      "resources_total",
				Help:      "Resources handled by action and kind",
			},
			[]string{"action", "kind"},
		),
		waitAttempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "wsctl",
				Subsystem: "workspace",
				Name:      "wait_attempts",
				Help:      "Attempts spent in bounded wait loops",
				Buckets:   prometheus.LinearBuckets(1, 5, 8),
			},
			[]string{"loop", "result"},
		),
		resourcesPresent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "wsctl",
				Subsystem: "workspace",
				Name:      "resources_present",
				Help:      "Present and target resource counts from the last status check",
			},
			[]string{"workspace", "count"},
		),
	}

	m.registry.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.stepsTotal,
		m.stepDuration,
		m.resourcesTotal,
		m.waitAttempts,
		m.resourcesPresent,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveOperation(operation, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, result).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) ObserveStep(operation, step, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(operation, step, result).Inc()
	m.stepDuration.WithLabelValues(operation, step).Observe(d.Seconds())
}

func (m *Metrics) ObserveResource(action string, kind cloud.Kind) {
	if m == nil {
		return
	}
	m.resourcesTotal.WithLabelValues(action, string(kind)).Inc()
}

func (m *Metrics) ObserveWait(loop string, attempts int, done bool) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if !done {
		result = ResultFailure
	}
	m.waitAttempts.WithLabelValues(loop, result).Observe(float64(attempts))
}

func (m *Metrics) ObserveStatus(workspace string, present, target int) {
	if m == nil {
		return
	}
	m.resourcesPresent.WithLabelValues(workspace, "present").Set(float64(present))
	m.resourcesPresent.WithLabelValues(workspace, "target").Set(float64(target))
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
