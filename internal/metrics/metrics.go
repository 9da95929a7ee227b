// Package metrics exposes Prometheus instrumentation for plan generation and
// the plan lifecycle.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nutribyte"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	lifecycleOps       *prometheus.CounterVec
	inconsistentActive *prometheus.CounterVec
	insertRetries      prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_generations_total",
			Help:      "Provider-backed plan generations by plan type and outcome.",
		}, []string{"plan_type", "outcome"}),
		generationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_generation_duration_seconds",
			Help:      "Wall time of provider calls including parsing.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"plan_type"}),
		lifecycleOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_lifecycle_operations_total",
			Help:      "Lifecycle controller operations by name and outcome.",
		}, []string{"op", "outcome"}),
		inconsistentActive: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_inconsistent_active_total",
			Help:      "Detections of more than one active plan for a user and plan type.",
		}, []string{"plan_type"}),
		insertRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_insert_retries_total",
			Help:      "Insert retries after a successful bulk deactivation.",
		}),
	}
}

// ObserveGeneration records one generator call.
func (m *Metrics) ObserveGeneration(planType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(planType, outcome).Inc()
	m.generationDuration.WithLabelValues(planType).Observe(d.Seconds())
}

// LifecycleOp counts one controller operation.
func (m *Metrics) LifecycleOp(op, outcome string) {
	if m == nil {
		return
	}
	m.lifecycleOps.WithLabelValues(op, outcome).Inc()
}

// InconsistentActive counts a multi-active detection.
func (m *Metrics) InconsistentActive(planType string) {
	if m == nil {
		return
	}
	m.inconsistentActive.WithLabelValues(planType).Inc()
}

// InsertRetry counts one insert retry.
func (m *Metrics) InsertRetry() {
	if m == nil {
		return
	}
	m.insertRetries.Inc()
}
