package jobmetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	require.NoError(t, m.Track("reminders:billing_note").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("reminders:billing_note").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reminders:billing_note", statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reminders:billing_note", statusFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("reminders:billing_note")))
	assert.Equal(t, float64(clock.Unix()), testutil.ToFloat64(m.lastSuccess.WithLabelValues("reminders:billing_note")))
}

func TestNilMetricsAreInert(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("x").End(boom), boom)
	m.Skipped("x")
	m.NotificationsCreated("x", 3)
}

func TestCountersIgnoreEmptyBatches(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.NotificationsCreated("reminders:activity", 0)
	m.NotificationsCreated("reminders:activity", 2)
	m.Skipped("reminders:activity")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.created.WithLabelValues("reminders:activity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("reminders:activity")))
}
