package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordQuery("overlap")
	r.RecordQuery("overlap")
	r.RecordQuery("insufficient_data")
	r.RecordSearch("Moon", "found", 1200)
	r.RecordSearch("Moon", "not_found", 300)
	r.RecordSearch("Sun", "error", 0)
	r.RecordError("provider")
	r.RecordLatency("overlap", 0.2)

	assert.InDelta(t, 2, testutil.ToFloat64(r.queries.WithLabelValues("overlap")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.queries.WithLabelValues("insufficient_data")), 0)
	assert.InDelta(t, 1500, testutil.ToFloat64(r.steps.WithLabelValues("Moon")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.searches.WithLabelValues("Sun", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.errors.WithLabelValues("provider")), 0)

	n, err := testutil.GatherAndCount(reg, "astro_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
