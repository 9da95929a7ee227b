package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveGeneration("workout", "success", 2*time.Second)
	m.ObserveGeneration("workout", "success", time.Second)
	m.ObserveGeneration("nutrition", "parse_error", time.Second)
	m.LifecycleOp("ensure_active", "reused")
	m.InconsistentActive("workout")
	m.InsertRetry()
	m.InsertRetry()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.generations.WithLabelValues("workout", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("nutrition", "parse_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lifecycleOps.WithLabelValues("ensure_active", "reused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inconsistentActive.WithLabelValues("workout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.insertRetries))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveGeneration("workout", "success", time.Second)
		m.LifecycleOp("delete", "ok")
		m.InconsistentActive("nutrition")
		m.InsertRetry()
	})
}
