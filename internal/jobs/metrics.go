// Package jobmetrics instruments the reminder jobs run by the worker.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Metrics holds the collectors shared by every reminder job.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	created     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

var (
	sharedOnce    sync.Once
	sharedMetrics *Metrics
)

// NewMetrics registers the collectors with reg. A nil reg returns a single
// process-wide instance bound to the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg != nil {
		return register(reg)
	}
	sharedOnce.Do(func() {
		sharedMetrics = register(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

func register(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_jobs_total",
			Help: "Reminder job runs by job and status.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_jobs_failures_total",
			Help: "Reminder job runs that returned an error.",
		}, []string{"job"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_jobs_skipped_total",
			Help: "Reminder job runs skipped because another worker held the lock.",
		}, []string{"job"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_job_notifications_total",
			Help: "Notifications written by reminder jobs.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odyssey_job_duration_seconds",
			Help:    "Reminder job run time in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "odyssey_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per reminder job.",
		}, []string{"job"}),
		now: time.Now,
	}
	reg.MustRegister(m.runs, m.failures, m.skipped, m.created, m.duration, m.lastSuccess)
	return m
}

// Run measures one execution of a job.
type Run struct {
	m       *Metrics
	job     string
	started time.Time
}

// Track starts measuring a run of job. It is safe on a nil Metrics.
func (m *Metrics) Track(job string) *Run {
	r := &Run{m: m, job: job, started: time.Now()}
	if m != nil {
		r.started = m.now()
	}
	return r
}

// End records the outcome of the run and hands err back to the caller.
func (r *Run) End(err error) error {
	if r == nil || r.m == nil || r.job == "" {
		return err
	}
	m := r.m
	finished := m.now()
	m.duration.WithLabelValues(r.job).Observe(finished.Sub(r.started).Seconds())
	if err != nil {
		m.failures.WithLabelValues(r.job).Inc()
		m.runs.WithLabelValues(r.job, statusFailure).Inc()
		return err
	}
	m.runs.WithLabelValues(r.job, statusSuccess).Inc()
	m.lastSuccess.WithLabelValues(r.job).Set(float64(finished.Unix()))
	return nil
}

// Skipped counts a run abandoned because the job lock was held.
func (m *Metrics) Skipped(job string) {
	if m != nil {
		m.skipped.WithLabelValues(job).Inc()
	}
}

// NotificationsCreated adds n to the notifications written by job.
func (m *Metrics) NotificationsCreated(job string, n int) {
	if m != nil && n > 0 {
		m.created.WithLabelValues(job).Add(float64(n))
	}
}
