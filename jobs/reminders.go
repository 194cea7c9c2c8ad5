package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-crm/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DefaultLockTTL bounds how long one run may hold its job lock.
const DefaultLockTTL = 5 * time.Minute

// Reminders is the notification work the jobs drive.
type Reminders interface {
	CheckActivityReminders(ctx context.Context) (int, error)
	CheckBillingNoteReminders(ctx context.Context) (int, error)
	CheckManufacturingFinish(ctx context.Context) (int, error)
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// KeyCleaner drops expired idempotency keys during the prune run.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ReminderJob runs the reminder checks. Each run holds a redis lock named
// after its task so overlapping runs across workers are skipped.
type ReminderJob struct {
	Reminders Reminders
	Locker    *redislock.Client
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	LockTTL   time.Duration
	// Keys is optional; when set the prune task also expires idempotency keys.
	Keys KeyCleaner
}

// NewReminderJob wires dependencies for the reminder handlers. locker may be
// nil, in which case runs are not serialised.
func NewReminderJob(reminders Reminders, locker *redislock.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReminderJob {
	return &ReminderJob{Reminders: reminders, Locker: locker, Logger: logger, Metrics: metrics, LockTTL: DefaultLockTTL}
}

// Handlers returns the asynq handlers for every reminder task.
func (j *ReminderJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskActivityReminders, Handler: j.HandleActivity},
		{Type: TaskBillingNoteReminders, Handler: j.HandleBillingNotes},
		{Type: TaskManufacturingFinish, Handler: j.HandleManufacturingFinish},
		{Type: TaskNotificationsPrune, Handler: j.HandlePrune},
	}
}

func (j *ReminderJob) HandleActivity(ctx context.Context, _ *asynq.Task) error {
	return j.run(ctx, TaskActivityReminders, j.Reminders.CheckActivityReminders)
}

func (j *ReminderJob) HandleBillingNotes(ctx context.Context, _ *asynq.Task) error {
	return j.run(ctx, TaskBillingNoteReminders, j.Reminders.CheckBillingNoteReminders)
}

func (j *ReminderJob) HandleManufacturingFinish(ctx context.Context, _ *asynq.Task) error {
	return j.run(ctx, TaskManufacturingFinish, j.Reminders.CheckManufacturingFinish)
}

// HandlePrune deletes read notifications older than the payload retention and
// idempotency keys of the same age.
func (j *ReminderJob) HandlePrune(ctx context.Context, t *asynq.Task) error {
	payload := PrunePayload{RetentionDays: DefaultPruneRetentionDays}
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = DefaultPruneRetentionDays
	}
	return j.run(ctx, TaskNotificationsPrune, func(ctx context.Context) (int, error) {
		retention := time.Duration(payload.RetentionDays) * 24 * time.Hour
		n, err := j.Reminders.Prune(ctx, retention)
		if err != nil {
			return int(n), err
		}
		if j.Keys != nil {
			keys, err := j.Keys.Cleanup(ctx, retention)
			if err != nil {
				j.logger().Warn("expire idempotency keys", slog.Any("error", err))
			} else if keys > 0 {
				j.logger().Info("idempotency keys expired", slog.Int64("count", keys))
			}
		}
		return int(n), nil
	})
}

func (j *ReminderJob) run(ctx context.Context, name string, fn func(context.Context) (int, error)) (resultErr error) {
	if j == nil || j.Reminders == nil {
		return errors.New("reminder job: not configured")
	}
	logger := j.logger().With(slog.String("job", name))

	if j.Locker != nil {
		lock, err := j.Locker.Obtain(ctx, "jobs:lock:"+name, j.lockTTL(), nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			logger.Info("job already running elsewhere, skipping")
			j.metrics().Skipped(name)
			return nil
		}
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				logger.Warn("release job lock", slog.Any("error", err))
			}
		}()
	}

	tracker := j.metrics().Track(name)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	n, err := fn(ctx)
	if err != nil {
		logger.Error("job failed", slog.Any("error", err))
		return err
	}
	if name != TaskNotificationsPrune {
		j.metrics().NotificationsCreated(name, n)
	}
	logger.Info("job completed", slog.Int("count", n))
	return nil
}

func (j *ReminderJob) lockTTL() time.Duration {
	if j.LockTTL > 0 {
		return j.LockTTL
	}
	return DefaultLockTTL
}

func (j *ReminderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *ReminderJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
