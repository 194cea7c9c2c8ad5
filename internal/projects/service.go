package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

// Service implements project and task use cases.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	return s.repo.ListProjects(ctx, filter)
}

// GetProject returns the project with its tasks ordered by due date.
func (s *Service) GetProject(ctx context.Context, id int64) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListTasks(ctx, TaskFilter{ProjectID: &id})
	if err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	p.Tasks = tasks
	return p, nil
}

func (s *Service) CreateProject(ctx context.Context, req ProjectRequest) (*Project, error) {
	p := Project{Status: StatusPlanned, Priority: PriorityNone, Color: DefaultProjectColor}
	if err := req.apply(&p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, httpx.FieldError("name", "is required")
	}
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := linkCustomer(ctx, repo, &p, req.CustomerID); err != nil {
			return err
		}
		var err error
		id, err = repo.CreateProject(ctx, p)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.logger.Info("project created", slog.Int64("project_id", id))
	return s.repo.GetProject(ctx, id)
}

// UpdateProject patches the project with the non-nil fields of req.
func (s *Service) UpdateProject(ctx context.Context, id int64, req ProjectRequest) (*Project, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		p, err := repo.GetProject(ctx, id)
		if err != nil {
			return err
		}
		if err := req.apply(p); err != nil {
			return err
		}
		if p.Name == "" {
			return httpx.FieldError("name", "is required")
		}
		if err := linkCustomer(ctx, repo, p, req.CustomerID); err != nil {
			return err
		}
		return repo.UpdateProject(ctx, *p)
	})
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return s.repo.GetProject(ctx, id)
}

// DeleteProject removes the project and its tasks.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	return s.repo.DeleteProject(ctx, id)
}

func linkCustomer(ctx context.Context, repo Repository, p *Project, id *int64) error {
	if id == nil {
		return nil
	}
	if *id == 0 {
		p.CustomerID = nil
		return nil
	}
	c, err := repo.GetCustomer(ctx, *id)
	if errors.Is(err, httpx.ErrNotFound) {
		return httpx.FieldError("customer_id", "customer does not exist")
	}
	if err != nil {
		return err
	}
	p.CustomerID = &c.ID
	return nil
}

func (s *Service) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	return s.repo.ListTasks(ctx, filter)
}

func (s *Service) GetTask(ctx context.Context, id int64) (*Task, error) {
	return s.repo.GetTask(ctx, id)
}

func (s *Service) CreateTask(ctx context.Context, req TaskRequest) (*Task, error) {
	if req.ProjectID == nil {
		return nil, httpx.FieldError("project_id", "is required")
	}
	t := Task{ProjectID: *req.ProjectID, Status: TaskTodo, Priority: PriorityNone, Color: DefaultTaskColor}
	if err := req.apply(&t); err != nil {
		return nil, err
	}
	if t.Title == "" {
		return nil, httpx.FieldError("title", "is required")
	}
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := requireProject(ctx, repo, t.ProjectID); err != nil {
			return err
		}
		var err error
		id, err = repo.CreateTask(ctx, t)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return s.repo.GetTask(ctx, id)
}

// UpdateTask patches the task. Setting project_id moves it to another project.
func (s *Service) UpdateTask(ctx context.Context, id int64, req TaskRequest) (*Task, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		t, err := repo.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if err := req.apply(t); err != nil {
			return err
		}
		if t.Title == "" {
			return httpx.FieldError("title", "is required")
		}
		if req.ProjectID != nil && *req.ProjectID != t.ProjectID {
			if err := requireProject(ctx, repo, *req.ProjectID); err != nil {
				return err
			}
			t.ProjectID = *req.ProjectID
		}
		return repo.UpdateTask(ctx, *t)
	})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.repo.GetTask(ctx, id)
}

func (s *Service) DeleteTask(ctx context.Context, id int64) error {
	return s.repo.DeleteTask(ctx, id)
}

func requireProject(ctx context.Context, repo Repository, id int64) error {
	_, err := repo.GetProject(ctx, id)
	if errors.Is(err, httpx.ErrNotFound) {
		return httpx.FieldError("project_id", "project does not exist")
	}
	return err
}
