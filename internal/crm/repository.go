package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-crm/internal/notifications"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

var (
	ErrCustomerNotFound = fmt.Errorf("customer: %w", httpx.ErrNotFound)
	ErrEITNotFound      = fmt.Errorf("eit: %w", httpx.ErrNotFound)
	ErrDealNotFound     = fmt.Errorf("deal: %w", httpx.ErrNotFound)
	ErrActivityNotFound = fmt.Errorf("activity schedule: %w", httpx.ErrNotFound)
	ErrStageNotFound    = fmt.Errorf("stage: %w", httpx.ErrNotFound)
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Directory resolves the customer and issuer a document refers to. Document
// repositories embed it so lookups run inside their transaction.
type Directory interface {
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
	GetEIT(ctx context.Context, id int64) (*EIT, error)
	// EnsureCustomer returns the oldest customer named name, creating it when
	// none exists. A blank name yields nil.
	EnsureCustomer(ctx context.Context, name string) (*Customer, error)
	// EnsureEIT is EnsureCustomer for issuing organizations.
	EnsureEIT(ctx context.Context, name string) (*EIT, error)
}

// Repository persists CRM records.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Directory

	ListCustomers(ctx context.Context, filter CustomerFilter) ([]Customer, error)
	CreateCustomer(ctx context.Context, c Customer) (int64, error)
	UpdateCustomer(ctx context.Context, c Customer) error
	DeleteCustomer(ctx context.Context, id int64) error
	DetachDeals(ctx context.Context, customerID int64) (int64, error)

	ListEITs(ctx context.Context) ([]EIT, error)
	CreateEIT(ctx context.Context, e EIT) (int64, error)
	UpdateEIT(ctx context.Context, e EIT) error
	DeleteEIT(ctx context.Context, id int64) error

	ListDeals(ctx context.Context, filter DealFilter) ([]Deal, error)
	// ListDealsByCustomer returns every deal linked to the customer, unpaged.
	ListDealsByCustomer(ctx context.Context, customerID int64) ([]Deal, error)
	GetDeal(ctx context.Context, id int64) (*Deal, error)
	CreateDeal(ctx context.Context, d Deal) (int64, error)
	UpdateDeal(ctx context.Context, d Deal) error
	DeleteDeal(ctx context.Context, id int64) error
	InsertDealHistory(ctx context.Context, h DealHistory) error
	ListDealHistory(ctx context.Context, dealID int64) ([]DealHistory, error)

	ListActivities(ctx context.Context, filter ActivityFilter) ([]ActivitySchedule, error)
	GetActivity(ctx context.Context, id int64) (*ActivitySchedule, error)
	CreateActivity(ctx context.Context, a ActivitySchedule) (int64, error)
	CompleteActivity(ctx context.Context, id int64) error

	ListStages(ctx context.Context) ([]Stage, error)
	GetStage(ctx context.Context, id int64) (*Stage, error)
	CreateStage(ctx context.Context, st Stage) (int64, error)
	UpdateStage(ctx context.Context, st Stage) error
	DeleteStage(ctx context.Context, id int64) error
	// StageTotals groups every deal by its stage label.
	StageTotals(ctx context.Context) ([]StageTotals, error)

	Notify(ctx context.Context, kind notifications.Kind, message string) error
}

type repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// NewDirectory binds a Directory to q, typically the transaction of another
// package's repository.
func NewDirectory(q DBTX) Directory {
	return &repository{db: q}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const customerColumns = `id, company_name, tax_id, address, email, phone, cus_fax, branch, industry,
attn, attn_email, attn_mobile, attn_division, attn_position,
cc, cc_division, cc_email, cc_mobile, cc_position, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.CompanyName, &c.TaxID, &c.Address, &c.Email, &c.Phone, &c.Fax, &c.Branch, &c.Industry,
		&c.Attn, &c.AttnEmail, &c.AttnMobile, &c.AttnDivision, &c.AttnPosition,
		&c.CC, &c.CCDivision, &c.CCEmail, &c.CCMobile, &c.CCPosition, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) EnsureCustomer(ctx context.Context, name string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE company_name = $1 ORDER BY id LIMIT 1`, name))
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	id, err := r.CreateCustomer(ctx, Customer{CompanyName: name})
	if err != nil {
		return nil, err
	}
	return r.GetCustomer(ctx, id)
}

func (r *repository) ListCustomers(ctx context.Context, filter CustomerFilter) ([]Customer, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args := []interface{}{limit, filter.Offset}
	where := ""
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = `WHERE company_name ILIKE $3 OR attn ILIKE $3 OR email ILIKE $3`
		args = append(args, "%"+s+"%")
	}
	rows, err := r.db.Query(ctx, `SELECT `+customerColumns+` FROM customers `+where+` ORDER BY id LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Customer, error) { return scanCustomer(row) })
}

func (r *repository) CreateCustomer(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO customers (company_name, tax_id, address, email, phone, cus_fax, branch, industry,
attn, attn_email, attn_mobile, attn_division, attn_position, cc, cc_division, cc_email, cc_mobile, cc_position)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18) RETURNING id`,
		c.CompanyName, c.TaxID, c.Address, c.Email, c.Phone, c.Fax, c.Branch, c.Industry,
		c.Attn, c.AttnEmail, c.AttnMobile, c.AttnDivision, c.AttnPosition,
		c.CC, c.CCDivision, c.CCEmail, c.CCMobile, c.CCPosition).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (r *repository) UpdateCustomer(ctx context.Context, c Customer) error {
	tag, err := r.db.Exec(ctx, `UPDATE customers SET company_name=$2, tax_id=$3, address=$4, email=$5, phone=$6, cus_fax=$7,
branch=$8, industry=$9, attn=$10, attn_email=$11, attn_mobile=$12, attn_division=$13, attn_position=$14,
cc=$15, cc_division=$16, cc_email=$17, cc_mobile=$18, cc_position=$19, updated_at=NOW() WHERE id=$1`,
		c.ID, c.CompanyName, c.TaxID, c.Address, c.Email, c.Phone, c.Fax, c.Branch, c.Industry,
		c.Attn, c.AttnEmail, c.AttnMobile, c.AttnDivision, c.AttnPosition,
		c.CC, c.CCDivision, c.CCEmail, c.CCMobile, c.CCPosition)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *repository) DeleteCustomer(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *repository) DetachDeals(ctx context.Context, customerID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE deals SET customer_id = NULL, updated_at = NOW() WHERE customer_id = $1`, customerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const eitColumns = `id, organization_name, organization_id, tax_number, address, eit_mobile, eit_telephone, eit_fax, header_image, created_at, updated_at`

func scanEIT(row pgx.Row) (EIT, error) {
	var e EIT
	err := row.Scan(&e.ID, &e.OrganizationName, &e.OrganizationID, &e.TaxNumber, &e.Address,
		&e.Mobile, &e.Telephone, &e.Fax, &e.HeaderImage, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) GetEIT(ctx context.Context, id int64) (*EIT, error) {
	e, err := scanEIT(r.db.QueryRow(ctx, `SELECT `+eitColumns+` FROM eits WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEITNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *repository) EnsureEIT(ctx context.Context, name string) (*EIT, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	e, err := scanEIT(r.db.QueryRow(ctx, `SELECT `+eitColumns+` FROM eits WHERE organization_name = $1 ORDER BY id LIMIT 1`, name))
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	id, err := r.CreateEIT(ctx, EIT{OrganizationName: name})
	if err != nil {
		return nil, err
	}
	return r.GetEIT(ctx, id)
}

func (r *repository) ListEITs(ctx context.Context) ([]EIT, error) {
	rows, err := r.db.Query(ctx, `SELECT `+eitColumns+` FROM eits ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (EIT, error) { return scanEIT(row) })
}

func (r *repository) CreateEIT(ctx context.Context, e EIT) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO eits (organization_name, organization_id, tax_number, address, eit_mobile, eit_telephone, eit_fax, header_image)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		e.OrganizationName, e.OrganizationID, e.TaxNumber, e.Address, e.Mobile, e.Telephone, e.Fax, e.HeaderImage).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (r *repository) UpdateEIT(ctx context.Context, e EIT) error {
	tag, err := r.db.Exec(ctx, `UPDATE eits SET organization_name=$2, organization_id=$3, tax_number=$4, address=$5,
eit_mobile=$6, eit_telephone=$7, eit_fax=$8, header_image=$9, updated_at=NOW() WHERE id=$1`,
		e.ID, e.OrganizationName, e.OrganizationID, e.TaxNumber, e.Address, e.Mobile, e.Telephone, e.Fax, e.HeaderImage)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEITNotFound
	}
	return nil
}

func (r *repository) DeleteEIT(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM eits WHERE id = $1`, id)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEITNotFound
	}
	return nil
}

const dealColumns = `d.id, d.title, d.customer_id, COALESCE(c.company_name, ''), d.amount, d.currency, d.priority,
d.contact, d.email, d.phone, d.address, d.tax_id, d.extra_contacts, d.items, d.notes, d.stage,
d.expected_close, d.po_number, d.salesperson, d.created_at, d.updated_at`

const dealFrom = `FROM deals d LEFT JOIN customers c ON c.id = d.customer_id`

func scanDeal(row pgx.Row) (Deal, error) {
	var d Deal
	err := row.Scan(&d.ID, &d.Title, &d.CustomerID, &d.CustomerName, &d.Amount, &d.Currency, &d.Priority,
		&d.Contact, &d.Email, &d.Phone, &d.Address, &d.TaxID, &d.ExtraContacts, &d.Items, &d.Notes, &d.Stage,
		&d.ExpectedClose, &d.PONumber, &d.Salesperson, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *repository) ListDeals(ctx context.Context, filter DealFilter) ([]Deal, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var conditions []string
	args := []interface{}{limit, filter.Offset}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("d.customer_id = $%d", len(args)))
	}
	if filter.Stage != "" {
		args = append(args, filter.Stage)
		conditions = append(conditions, fmt.Sprintf("d.stage = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	rows, err := r.db.Query(ctx, `SELECT `+dealColumns+` `+dealFrom+` `+where+` ORDER BY d.id DESC LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Deal, error) { return scanDeal(row) })
}

func (r *repository) ListDealsByCustomer(ctx context.Context, customerID int64) ([]Deal, error) {
	rows, err := r.db.Query(ctx, `SELECT `+dealColumns+` `+dealFrom+` WHERE d.customer_id = $1 ORDER BY d.id`, customerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Deal, error) { return scanDeal(row) })
}

func (r *repository) GetDeal(ctx context.Context, id int64) (*Deal, error) {
	d, err := scanDeal(r.db.QueryRow(ctx, `SELECT `+dealColumns+` `+dealFrom+` WHERE d.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	return &d, nil
}

func dealArgs(d Deal) []interface{} {
	extras := d.ExtraContacts
	if extras == nil {
		extras = []ExtraContact{}
	}
	items := d.Items
	if len(items) == 0 {
		items = []byte("[]")
	}
	return []interface{}{d.Title, d.CustomerID, d.Amount, d.Currency, d.Priority,
		d.Contact, d.Email, d.Phone, d.Address, d.TaxID, extras, string(items), d.Notes, d.Stage,
		d.ExpectedClose, d.PONumber, d.Salesperson}
}

func (r *repository) CreateDeal(ctx context.Context, d Deal) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO deals (title, customer_id, amount, currency, priority, contact, email, phone, address, tax_id,
extra_contacts, items, notes, stage, expected_close, po_number, salesperson)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12::jsonb,$13,$14,$15,$16,$17) RETURNING id`, dealArgs(d)...).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (r *repository) UpdateDeal(ctx context.Context, d Deal) error {
	args := append(dealArgs(d), d.ID)
	tag, err := r.db.Exec(ctx, `UPDATE deals SET title=$1, customer_id=$2, amount=$3, currency=$4, priority=$5, contact=$6,
email=$7, phone=$8, address=$9, tax_id=$10, extra_contacts=$11, items=$12::jsonb, notes=$13, stage=$14,
expected_close=$15, po_number=$16, salesperson=$17, updated_at=NOW() WHERE id=$18`, args...)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDealNotFound
	}
	return nil
}

func (r *repository) DeleteDeal(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM deals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDealNotFound
	}
	return nil
}

func (r *repository) InsertDealHistory(ctx context.Context, h DealHistory) error {
	_, err := r.db.Exec(ctx, `INSERT INTO deal_histories (deal_id, from_stage, to_stage, changed_at)
VALUES ($1, $2, $3, COALESCE($4, NOW()))`, h.DealID, h.FromStage, h.ToStage, nullTime(h.ChangedAt))
	return err
}

func (r *repository) ListDealHistory(ctx context.Context, dealID int64) ([]DealHistory, error) {
	rows, err := r.db.Query(ctx, `SELECT id, deal_id, from_stage, to_stage, changed_at
FROM deal_histories WHERE deal_id = $1 ORDER BY changed_at DESC, id DESC`, dealID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (DealHistory, error) {
		var h DealHistory
		err := row.Scan(&h.ID, &h.DealID, &h.FromStage, &h.ToStage, &h.ChangedAt)
		return h, err
	})
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

const activityColumns = `id, deal_id, customer, activity_name, salesperson, start_at, due_at, completed, reminder_sent, created_at`

func scanActivity(row pgx.Row) (ActivitySchedule, error) {
	var a ActivitySchedule
	err := row.Scan(&a.ID, &a.DealID, &a.Customer, &a.ActivityName, &a.Salesperson, &a.StartAt, &a.DueAt,
		&a.Completed, &a.ReminderSent, &a.CreatedAt)
	return a, err
}

func (r *repository) ListActivities(ctx context.Context, filter ActivityFilter) ([]ActivitySchedule, error) {
	var conditions []string
	var args []interface{}
	if filter.DealID != nil {
		args = append(args, *filter.DealID)
		conditions = append(conditions, fmt.Sprintf("deal_id = $%d", len(args)))
	}
	if filter.OpenOnly {
		conditions = append(conditions, "completed = FALSE")
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	rows, err := r.db.Query(ctx, `SELECT `+activityColumns+` FROM activity_schedules `+where+` ORDER BY due_at, id`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ActivitySchedule, error) { return scanActivity(row) })
}

func (r *repository) GetActivity(ctx context.Context, id int64) (*ActivitySchedule, error) {
	a, err := scanActivity(r.db.QueryRow(ctx, `SELECT `+activityColumns+` FROM activity_schedules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) CreateActivity(ctx context.Context, a ActivitySchedule) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO activity_schedules (deal_id, customer, activity_name, salesperson, start_at, due_at)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		a.DealID, a.Customer, a.ActivityName, a.Salesperson, a.StartAt, a.DueAt).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (r *repository) CompleteActivity(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE activity_schedules SET completed = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}
	return nil
}

func (r *repository) Notify(ctx context.Context, kind notifications.Kind, message string) error {
	_, err := notifications.Emit(ctx, r.db, kind, message, false)
	return err
}

func scanStage(row pgx.Row) (Stage, error) {
	var st Stage
	err := row.Scan(&st.ID, &st.Name, &st.Position, &st.CreatedAt)
	return st, err
}

func (r *repository) ListStages(ctx context.Context) ([]Stage, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, position, created_at FROM pipeline_stages ORDER BY position, created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Stage, error) { return scanStage(row) })
}

func (r *repository) GetStage(ctx context.Context, id int64) (*Stage, error) {
	st, err := scanStage(r.db.QueryRow(ctx, `SELECT id, name, position, created_at FROM pipeline_stages WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (r *repository) CreateStage(ctx context.Context, st Stage) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO pipeline_stages (name, position) VALUES ($1, $2) RETURNING id`, st.Name, st.Position).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (r *repository) UpdateStage(ctx context.Context, st Stage) error {
	tag, err := r.db.Exec(ctx, `UPDATE pipeline_stages SET name = $1, position = $2 WHERE id = $3`, st.Name, st.Position, st.ID)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStageNotFound
	}
	return nil
}

func (r *repository) DeleteStage(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM pipeline_stages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStageNotFound
	}
	return nil
}

func (r *repository) StageTotals(ctx context.Context) ([]StageTotals, error) {
	rows, err := r.db.Query(ctx, `SELECT stage, COUNT(*), COALESCE(SUM(amount), 0) FROM deals GROUP BY stage ORDER BY stage`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StageTotals, error) {
		var t StageTotals
		err := row.Scan(&t.Stage, &t.Deals, &t.Amount)
		return t, err
	})
}
