package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/odyssey-crm/internal/jobs"
)

type fakeReminders struct {
	activity  int
	billing   int
	finish    int
	retention time.Duration
	err       error
}

func (f *fakeReminders) CheckActivityReminders(ctx context.Context) (int, error) {
	f.activity++
	return 2, f.err
}

func (f *fakeReminders) CheckBillingNoteReminders(ctx context.Context) (int, error) {
	f.billing++
	return 1, f.err
}

func (f *fakeReminders) CheckManufacturingFinish(ctx context.Context) (int, error) {
	f.finish++
	return 0, f.err
}

func (f *fakeReminders) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return 4, f.err
}

func newLocker(t *testing.T) *redislock.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redislock.New(client)
}

func TestReminderJobRunsUnderLock(t *testing.T) {
	locker := newLocker(t)
	reminders := &fakeReminders{}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewReminderJob(reminders, locker, nil, metrics)
	ctx := context.Background()

	require.NoError(t, job.HandleActivity(ctx, asynq.NewTask(TaskActivityReminders, nil)))
	require.NoError(t, job.HandleActivity(ctx, asynq.NewTask(TaskActivityReminders, nil)))
	assert.Equal(t, 2, reminders.activity, "the lock is released after each run")

	held, err := locker.Obtain(ctx, "jobs:lock:"+TaskBillingNoteReminders, time.Minute, nil)
	require.NoError(t, err)
	require.NoError(t, job.HandleBillingNotes(ctx, asynq.NewTask(TaskBillingNoteReminders, nil)))
	assert.Zero(t, reminders.billing, "a held lock skips the run")
	require.NoError(t, held.Release(ctx))

	require.NoError(t, job.HandleBillingNotes(ctx, asynq.NewTask(TaskBillingNoteReminders, nil)))
	assert.Equal(t, 1, reminders.billing)
}

func TestReminderJobReportsFailures(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	reminders := &fakeReminders{err: errors.New("db down")}
	job := NewReminderJob(reminders, newLocker(t), nil, metrics)

	err := job.HandleManufacturingFinish(context.Background(), asynq.NewTask(TaskManufacturingFinish, nil))
	require.Error(t, err)

	count, err := testutil.GatherAndCount(registry, "odyssey_jobs_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPruneUsesPayloadRetention(t *testing.T) {
	reminders := &fakeReminders{}
	job := NewReminderJob(reminders, nil, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewPruneTask(7)
	require.NoError(t, err)
	require.NoError(t, job.HandlePrune(context.Background(), task))
	assert.Equal(t, 7*24*time.Hour, reminders.retention)

	require.NoError(t, job.HandlePrune(context.Background(), asynq.NewTask(TaskNotificationsPrune, nil)))
	assert.Equal(t, DefaultPruneRetentionDays*24*time.Hour, reminders.retention)

	err = job.HandlePrune(context.Background(), asynq.NewTask(TaskNotificationsPrune, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDefaultScheduleCoversEveryTask(t *testing.T) {
	schedule, err := DefaultSchedule()
	require.NoError(t, err)
	require.Len(t, schedule, len(TaskNames()))
	for i, name := range TaskNames() {
		assert.Equal(t, name, schedule[i].Task.Type())
		assert.NotEmpty(t, schedule[i].Spec)
	}

	_, err = NewTask("mail:send")
	assert.Error(t, err)
}

func TestClientRejectsUnknownTask(t *testing.T) {
	_, err := NewClient(asynq.RedisClientOpt{})
	require.ErrorContains(t, err, "redis address required")

	client, err := NewClient(asynq.RedisClientOpt{Addr: miniredis.RunT(t).Addr()})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Enqueue(context.Background(), "reports:nightly")
	require.ErrorContains(t, err, "unknown task")
}

type fakeKeys struct {
	olderThan time.Duration
	err       error
}

func (f *fakeKeys) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 3, f.err
}

func TestPruneExpiresIdempotencyKeys(t *testing.T) {
	keys := &fakeKeys{}
	job := NewReminderJob(&fakeReminders{}, nil, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.Keys = keys

	task, err := NewPruneTask(10)
	require.NoError(t, err)
	require.NoError(t, job.HandlePrune(context.Background(), task))
	assert.Equal(t, 10*24*time.Hour, keys.olderThan)

	keys.err = errors.New("db down")
	require.NoError(t, job.HandlePrune(context.Background(), task))
}

func TestNewWorkerRejectsInvalidCron(t *testing.T) {
	task, err := NewTask(TaskActivityReminders)
	require.NoError(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: miniredis.RunT(t).Addr()},
		Cron:      []CronRegistration{{Spec: "every so often", Task: task}},
	})
	require.ErrorContains(t, err, "jobs: schedule reminders:activity")
}

func TestHealthWithoutInspector(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"scheduled":0,"retry":0,"paused":false}`, rec.Body.String())
}
