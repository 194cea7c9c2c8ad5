package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

var (
	ErrProjectNotFound = fmt.Errorf("project: %w", httpx.ErrNotFound)
	ErrTaskNotFound    = fmt.Errorf("task: %w", httpx.ErrNotFound)
)

// Repository persists projects and tasks. Customer lookups go through the
// embedded crm.Directory so they share the transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	crm.Directory

	ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error)
	GetProject(ctx context.Context, id int64) (*Project, error)
	CreateProject(ctx context.Context, p Project) (int64, error)
	UpdateProject(ctx context.Context, p Project) error
	DeleteProject(ctx context.Context, id int64) error

	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	GetTask(ctx context.Context, id int64) (*Task, error)
	CreateTask(ctx context.Context, t Task) (int64, error)
	UpdateTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, id int64) error
}

type repository struct {
	crm.Directory
	db   crm.DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{Directory: crm.NewDirectory(pool), db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{Directory: crm.NewDirectory(tx), db: tx, pool: r.pool})
	})
}

const projectSelect = `SELECT p.id, p.name, p.description, p.customer_id, COALESCE(c.company_name, ''),
p.start_date, p.end_date, p.status, p.priority, p.color,
(SELECT COUNT(*) FROM project_tasks t WHERE t.project_id = p.id),
(SELECT COUNT(*) FROM project_tasks t WHERE t.project_id = p.id AND t.status = 'done'),
p.created_at, p.updated_at
FROM projects p LEFT JOIN customers c ON c.id = p.customer_id`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CustomerID, &p.CustomerName,
		&p.StartDate, &p.EndDate, &p.Status, &p.Priority, &p.Color,
		&p.TaskTotal, &p.TasksDone, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	var conds []string
	var args []interface{}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conds = append(conds, fmt.Sprintf("p.customer_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("p.status = $%d", len(args)))
	}
	query := projectSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := r.db.Query(ctx, query+" ORDER BY p.created_at DESC, p.id DESC", args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Project, error) { return scanProject(row) })
}

func (r *repository) GetProject(ctx context.Context, id int64) (*Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx, projectSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) CreateProject(ctx context.Context, p Project) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO projects (name, description, customer_id, start_date, end_date, status, priority, color)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.Name, p.Description, p.CustomerID, p.StartDate, p.EndDate, p.Status, p.Priority, p.Color).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (r *repository) UpdateProject(ctx context.Context, p Project) error {
	tag, err := r.db.Exec(ctx, `UPDATE projects SET name=$1, description=$2, customer_id=$3, start_date=$4, end_date=$5,
status=$6, priority=$7, color=$8, updated_at=NOW() WHERE id=$9`,
		p.Name, p.Description, p.CustomerID, p.StartDate, p.EndDate, p.Status, p.Priority, p.Color, p.ID)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (r *repository) DeleteProject(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

const taskColumns = `id, project_id, title, description, assignee, start_date, due_date, status, priority, color, created_at, updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Assignee, &t.StartDate, &t.DueDate,
		&t.Status, &t.Priority, &t.Color, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *repository) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	var conds []string
	var args []interface{}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		conds = append(conds, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Assignee != "" {
		args = append(args, filter.Assignee)
		conds = append(conds, fmt.Sprintf("lower(assignee) = lower($%d)", len(args)))
	}
	query := `SELECT ` + taskColumns + ` FROM project_tasks`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := r.db.Query(ctx, query+" ORDER BY due_date NULLS LAST, id", args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Task, error) { return scanTask(row) })
}

func (r *repository) GetTask(ctx context.Context, id int64) (*Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM project_tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) CreateTask(ctx context.Context, t Task) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO project_tasks (project_id, title, description, assignee, start_date, due_date, status, priority, color)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		t.ProjectID, t.Title, t.Description, t.Assignee, t.StartDate, t.DueDate, t.Status, t.Priority, t.Color).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (r *repository) UpdateTask(ctx context.Context, t Task) error {
	tag, err := r.db.Exec(ctx, `UPDATE project_tasks SET project_id=$1, title=$2, description=$3, assignee=$4, start_date=$5,
due_date=$6, status=$7, priority=$8, color=$9, updated_at=NOW() WHERE id=$10`,
		t.ProjectID, t.Title, t.Description, t.Assignee, t.StartDate, t.DueDate, t.Status, t.Priority, t.Color, t.ID)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *repository) DeleteTask(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM project_tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}
