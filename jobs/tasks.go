package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	TaskActivityReminders    = "reminders:activity"
	TaskBillingNoteReminders = "reminders:billing_note"
	TaskManufacturingFinish  = "reminders:manufacturing_finish"
	TaskNotificationsPrune   = "notifications:prune"

	// DefaultPruneRetentionDays keeps read notifications for a month.
	DefaultPruneRetentionDays = 30
)

// TaskNames lists every task the worker handles.
func TaskNames() []string {
	return []string{TaskActivityReminders, TaskBillingNoteReminders, TaskManufacturingFinish, TaskNotificationsPrune}
}

// PrunePayload configures TaskNotificationsPrune.
type PrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewTask builds the task for name with its default payload.
func NewTask(name string) (*asynq.Task, error) {
	switch name {
	case TaskActivityReminders, TaskBillingNoteReminders, TaskManufacturingFinish:
		return asynq.NewTask(name, nil), nil
	case TaskNotificationsPrune:
		return NewPruneTask(DefaultPruneRetentionDays)
	}
	return nil, fmt.Errorf("jobs: unknown task %q", name)
}

// NewPruneTask constructs the prune task.
func NewPruneTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(PrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationsPrune, data), nil
}
