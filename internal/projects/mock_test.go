package projects

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
)

type mockRepository struct {
	mu             sync.Mutex
	nextID         int64
	projects       map[int64]Project
	tasks          map[int64]Task
	customers      map[int64]crm.Customer
	getCustomerErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		projects:  map[int64]Project{},
		tasks:     map[int64]Task{},
		customers: map[int64]crm.Customer{},
	}
}

func (m *mockRepository) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) GetCustomer(ctx context.Context, id int64) (*crm.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getCustomerErr != nil {
		return nil, m.getCustomerErr
	}
	c, ok := m.customers[id]
	if !ok {
		return nil, crm.ErrCustomerNotFound
	}
	return &c, nil
}

func (m *mockRepository) GetEIT(ctx context.Context, id int64) (*crm.EIT, error) {
	return nil, crm.ErrEITNotFound
}

func (m *mockRepository) EnsureCustomer(ctx context.Context, name string) (*crm.Customer, error) {
	return nil, errors.New("not used")
}

func (m *mockRepository) EnsureEIT(ctx context.Context, name string) (*crm.EIT, error) {
	return nil, errors.New("not used")
}

func (m *mockRepository) addCustomer(name string) crm.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := crm.Customer{ID: m.id(), CompanyName: name}
	m.customers[c.ID] = c
	return c
}

func (m *mockRepository) withCounts(p Project) Project {
	p.TaskTotal, p.TasksDone = 0, 0
	for _, t := range m.tasks {
		if t.ProjectID != p.ID {
			continue
		}
		p.TaskTotal++
		if t.Status == TaskDone {
			p.TasksDone++
		}
	}
	p.CustomerName = ""
	if p.CustomerID != nil {
		p.CustomerName = m.customers[*p.CustomerID].CompanyName
	}
	return p
}

func (m *mockRepository) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Project
	for _, p := range m.projects {
		if filter.CustomerID != nil && (p.CustomerID == nil || *p.CustomerID != *filter.CustomerID) {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, m.withCounts(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockRepository) GetProject(ctx context.Context, id int64) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	p = m.withCounts(p)
	return &p, nil
}

func (m *mockRepository) CreateProject(ctx context.Context, p Project) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt
	m.projects[p.ID] = p
	return p.ID, nil
}

func (m *mockRepository) UpdateProject(ctx context.Context, p Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return ErrProjectNotFound
	}
	p.Tasks = nil
	m.projects[p.ID] = p
	return nil
}

func (m *mockRepository) DeleteProject(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return ErrProjectNotFound
	}
	delete(m.projects, id)
	for tid, t := range m.tasks {
		if t.ProjectID == id {
			delete(m.tasks, tid)
		}
	}
	return nil
}

func (m *mockRepository) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Task
	for _, t := range m.tasks {
		if filter.ProjectID != nil && t.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Assignee != "" && !strings.EqualFold(t.Assignee, filter.Assignee) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepository) GetTask(ctx context.Context, id int64) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &t, nil
}

func (m *mockRepository) CreateTask(ctx context.Context, t Task) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	m.tasks[t.ID] = t
	return t.ID, nil
}

func (m *mockRepository) UpdateTask(ctx context.Context, t Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return ErrTaskNotFound
	}
	m.tasks[t.ID] = t
	return nil
}

func (m *mockRepository) DeleteTask(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}
