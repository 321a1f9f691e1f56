package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Transition("next", "")
	m.Transition("next", "")
	m.Transition("next", "validation")
	m.Submission("ok")
	m.Payment("paid")
	m.Order(10000)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("next", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("next", "validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Payments.WithLabelValues("paid")))

	n, err := testutil.GatherAndCount(reg, "standbot_order_amount")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transition("next", "")
		m.Submission("ok")
		m.Payment("failed")
		m.Order(1)
	})
}
