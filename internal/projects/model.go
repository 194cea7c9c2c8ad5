// Package projects tracks customer projects and the tasks scheduled under
// them.
package projects

import "time"

// Project statuses.
const (
	StatusPlanned    = "planned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusOnHold     = "on_hold"
)

// Task statuses.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
	TaskBlocked    = "blocked"
)

// PriorityNone is the default priority of projects and tasks. The others are
// low, medium and high.
const PriorityNone = "none"

const (
	DefaultProjectColor = "#6366f1"
	DefaultTaskColor    = "#64748b"
)

// Project groups tasks for one piece of customer work.
type Project struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	CustomerID   *int64     `json:"customer_id"`
	CustomerName string     `json:"customer_name,omitempty"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	Color        string     `json:"color"`
	TaskTotal    int        `json:"task_total"`
	TasksDone    int        `json:"tasks_done"`
	Tasks        []Task     `json:"tasks,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Task is one scheduled piece of a project. DueDate doubles as the end date on
// timeline views.
type Task struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Assignee    string     `json:"assignee"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Color       string     `json:"color"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
