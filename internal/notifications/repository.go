package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

// ErrNotFound is returned when a notification does not exist.
var ErrNotFound = fmt.Errorf("notification: %w", httpx.ErrNotFound)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const emitSQL = `
INSERT INTO notifications (type, message, is_read, created_at)
SELECT $1::text, $2::text, FALSE, NOW()
WHERE NOT EXISTS (
    SELECT 1 FROM notification_dismissals d WHERE d.type = $1::text AND d.message = $2::text
)
AND (NOT $3::boolean OR NOT EXISTS (
    SELECT 1 FROM notifications n WHERE n.type = $1::text AND n.message = $2::text
))`

// Emit inserts a notification on q unless the (kind, message) pair was
// dismissed. With once set, an existing notification carrying the same pair
// also suppresses the insert. It reports whether a row was written.
func Emit(ctx context.Context, q DBTX, kind Kind, message string, once bool) (bool, error) {
	if message == "" {
		return false, nil
	}
	tag, err := q.Exec(ctx, emitSQL, string(kind), message, once)
	if err != nil {
		return false, fmt.Errorf("notification: emit %s: %w", kind, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ActivityDue is an open activity schedule considered by the reminder checks.
type ActivityDue struct {
	ID           int64
	Customer     string
	ActivityName string
	DueAt        time.Time
}

// BillingNoteDue is a billing note whose due date falls in the reminder window.
type BillingNoteDue struct {
	ID       int64
	Code     string
	Customer string
	DueDate  time.Time
}

// OrderState is a manufacturing order not yet announced as finished.
type OrderState struct {
	ID              int64
	JobOrderCode    string
	ProductNo       string
	State           string
	ComponentStatus string
}

// Repository persists notifications and reads reminder sources.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Emit(ctx context.Context, kind Kind, message string, once bool) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]Notification, error)
	Get(ctx context.Context, id int64) (*Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) ([]Notification, error)
	Dismiss(ctx context.Context, kind Kind, message string) error
	PruneRead(ctx context.Context, before time.Time) (int64, error)

	UpcomingActivities(ctx context.Context, after, until time.Time) ([]ActivityDue, error)
	OverdueActivities(ctx context.Context, now time.Time) ([]ActivityDue, error)
	MarkActivityReminded(ctx context.Context, id int64) error
	BillingNotesDue(ctx context.Context, from, to time.Time) ([]BillingNoteDue, error)
	PendingFinishOrders(ctx context.Context) ([]OrderState, error)
	MarkOrderFinishNotified(ctx context.Context, id int64) error
}

type repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Emit(ctx context.Context, kind Kind, message string, once bool) (bool, error) {
	return Emit(ctx, r.db, kind, message, once)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Notification, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT id, type, message, is_read, created_at FROM notifications
WHERE ($1 = '' OR type = $1) AND (NOT $2 OR is_read = FALSE)
ORDER BY created_at DESC, id DESC LIMIT $3`, string(filter.Kind), filter.UnreadOnly, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanNotification)
}

func (r *repository) Get(ctx context.Context, id int64) (*Notification, error) {
	rows, err := r.db.Query(ctx, `SELECT id, type, message, is_read, created_at FROM notifications WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	n, err := pgx.CollectExactlyOneRow(rows, scanNotification)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func scanNotification(row pgx.CollectableRow) (Notification, error) {
	var n Notification
	var kind string
	err := row.Scan(&n.ID, &kind, &n.Message, &n.IsRead, &n.CreatedAt)
	n.Kind = Kind(kind)
	return n, err
}

func (r *repository) MarkRead(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) MarkAllRead(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE is_read = FALSE`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteAll(ctx context.Context) ([]Notification, error) {
	rows, err := r.db.Query(ctx, `DELETE FROM notifications RETURNING id, type, message, is_read, created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanNotification)
}

func (r *repository) Dismiss(ctx context.Context, kind Kind, message string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO notification_dismissals (type, message, dismissed_at) VALUES ($1, $2, NOW())
ON CONFLICT (type, message) DO UPDATE SET dismissed_at = EXCLUDED.dismissed_at`, string(kind), message)
	return err
}

func (r *repository) PruneRead(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE is_read = TRUE AND created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const activityColumns = `a.id, COALESCE(NULLIF(a.customer, ''), c.company_name, ''), a.activity_name, a.due_at`

const activityFrom = `FROM activity_schedules a
LEFT JOIN deals d ON d.id = a.deal_id
LEFT JOIN customers c ON c.id = d.customer_id`

func (r *repository) UpcomingActivities(ctx context.Context, after, until time.Time) ([]ActivityDue, error) {
	rows, err := r.db.Query(ctx, `SELECT `+activityColumns+` `+activityFrom+`
WHERE a.completed = FALSE AND a.reminder_sent = FALSE AND a.due_at > $1 AND a.due_at <= $2
ORDER BY a.due_at, a.id`, after, until)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanActivity)
}

func (r *repository) OverdueActivities(ctx context.Context, now time.Time) ([]ActivityDue, error) {
	rows, err := r.db.Query(ctx, `SELECT `+activityColumns+` `+activityFrom+`
WHERE a.completed = FALSE AND a.due_at < $1
ORDER BY a.due_at, a.id`, now)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanActivity)
}

func scanActivity(row pgx.CollectableRow) (ActivityDue, error) {
	var a ActivityDue
	err := row.Scan(&a.ID, &a.Customer, &a.ActivityName, &a.DueAt)
	return a, err
}

func (r *repository) MarkActivityReminded(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE activity_schedules SET reminder_sent = TRUE WHERE id = $1`, id)
	return err
}

func (r *repository) BillingNotesDue(ctx context.Context, from, to time.Time) ([]BillingNoteDue, error) {
	rows, err := r.db.Query(ctx, `SELECT b.id, b.bn_code, COALESCE(c.company_name, ''), b.bn_due_date
FROM billing_notes b LEFT JOIN customers c ON c.id = b.customer_id
WHERE b.bn_due_date >= $1::date AND b.bn_due_date <= $2::date
ORDER BY b.bn_due_date, b.id`, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (BillingNoteDue, error) {
		var b BillingNoteDue
		err := row.Scan(&b.ID, &b.Code, &b.Customer, &b.DueDate)
		return b, err
	})
}

func (r *repository) PendingFinishOrders(ctx context.Context) ([]OrderState, error) {
	rows, err := r.db.Query(ctx, `SELECT id, job_order_code, product_no, state, component_status
FROM manufacturing_orders WHERE finish_notified = FALSE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderState, error) {
		var o OrderState
		err := row.Scan(&o.ID, &o.JobOrderCode, &o.ProductNo, &o.State, &o.ComponentStatus)
		return o, err
	})
}

func (r *repository) MarkOrderFinishNotified(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE manufacturing_orders SET finish_notified = TRUE WHERE id = $1`, id)
	return err
}
