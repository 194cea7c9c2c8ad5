package projects

import (
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

// ProjectRequest creates or patches a project. Nil fields keep the stored
// value; an empty date string clears the date and customer_id 0 unlinks the
// customer.
type ProjectRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty"`
	CustomerID  *int64  `json:"customer_id,omitempty" validate:"omitempty,gte=0"`
	StartDate   *string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=planned in_progress completed on_hold"`
	Priority    *string `json:"priority,omitempty" validate:"omitempty,oneof=none low medium high"`
	Color       *string `json:"color,omitempty" validate:"omitempty,max=20"`
}

func (req ProjectRequest) apply(p *Project) error {
	assign(&p.Name, req.Name)
	assign(&p.Description, req.Description)
	assign(&p.Status, req.Status)
	assign(&p.Priority, req.Priority)
	assign(&p.Color, req.Color)
	if err := applyDate(&p.StartDate, req.StartDate, "start_date"); err != nil {
		return err
	}
	if err := applyDate(&p.EndDate, req.EndDate, "end_date"); err != nil {
		return err
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return httpx.FieldError("end_date", "must not be before start_date")
	}
	return nil
}

// TaskRequest creates or patches a task.
type TaskRequest struct {
	ProjectID   *int64  `json:"project_id,omitempty" validate:"omitempty,gt=0"`
	Title       *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty"`
	Assignee    *string `json:"assignee,omitempty" validate:"omitempty,max=100"`
	StartDate   *string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DueDate     *string `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress done blocked"`
	Priority    *string `json:"priority,omitempty" validate:"omitempty,oneof=none low medium high"`
	Color       *string `json:"color,omitempty" validate:"omitempty,max=20"`
}

func (req TaskRequest) apply(t *Task) error {
	assign(&t.Title, req.Title)
	assign(&t.Description, req.Description)
	assign(&t.Assignee, req.Assignee)
	assign(&t.Status, req.Status)
	assign(&t.Priority, req.Priority)
	assign(&t.Color, req.Color)
	if err := applyDate(&t.StartDate, req.StartDate, "start_date"); err != nil {
		return err
	}
	if err := applyDate(&t.DueDate, req.DueDate, "due_date"); err != nil {
		return err
	}
	if t.StartDate != nil && t.DueDate != nil && t.DueDate.Before(*t.StartDate) {
		return httpx.FieldError("due_date", "must not be before start_date")
	}
	return nil
}

// ProjectFilter narrows ListProjects.
type ProjectFilter struct {
	CustomerID *int64
	Status     string
}

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	ProjectID *int64
	Status    string
	Assignee  string
}

func assign(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func applyDate(dst **time.Time, v *string, field string) error {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		*dst = nil
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return httpx.FieldError(field, "must be YYYY-MM-DD")
	}
	*dst = &t
	return nil
}
