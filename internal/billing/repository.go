package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/docseq"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

var (
	ErrDocumentNotFound    = fmt.Errorf("billing document: %w", httpx.ErrNotFound)
	ErrBillingNoteNotFound = fmt.Errorf("billing note: %w", httpx.ErrNotFound)
	ErrTaxInvoiceNotFound  = fmt.Errorf("tax invoice: %w", httpx.ErrNotFound)
)

// Repository persists billing documents.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	crm.Directory
	Sequences() docseq.Store
	// CodeTaken reports whether code is used in the series column by a row
	// other than excludeID.
	CodeTaken(ctx context.Context, s docseq.Series, code string, excludeID int64) (bool, error)

	ListDocuments(ctx context.Context, k Kind, filter ListFilter) ([]Document, error)
	GetDocument(ctx context.Context, k Kind, id int64) (*Document, error)
	CreateDocument(ctx context.Context, k Kind, d Document) (int64, error)
	UpdateDocument(ctx context.Context, k Kind, d Document) error
	DeleteDocument(ctx context.Context, k Kind, id int64) error

	ListBillingNotes(ctx context.Context, filter ListFilter) ([]BillingNote, error)
	GetBillingNote(ctx context.Context, id int64) (*BillingNote, error)
	CreateBillingNote(ctx context.Context, bn BillingNote) (int64, error)
	UpdateBillingNote(ctx context.Context, bn BillingNote) error
	DeleteBillingNote(ctx context.Context, id int64) error

	ListTaxInvoices(ctx context.Context, filter ListFilter) ([]TaxInvoice, error)
	GetTaxInvoice(ctx context.Context, id int64) (*TaxInvoice, error)
	CreateTaxInvoice(ctx context.Context, ti TaxInvoice) (int64, error)
	UpdateTaxInvoice(ctx context.Context, ti TaxInvoice) error
	DeleteTaxInvoice(ctx context.Context, id int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	crm.Directory
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{Directory: crm.NewDirectory(pool), db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{Directory: crm.NewDirectory(tx), db: tx, pool: r.pool})
	})
}

func (r *repository) Sequences() docseq.Store {
	return docseq.NewPGStore(r.db)
}

func (r *repository) CodeTaken(ctx context.Context, s docseq.Series, code string, excludeID int64) (bool, error) {
	table, column := pgx.Identifier{s.Table}.Sanitize(), pgx.Identifier{s.Column}.Sanitize()
	var taken bool
	err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND id <> $2)`, table, column),
		code, excludeID).Scan(&taken)
	return taken, err
}

func page(filter ListFilter) (int, int) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return limit, filter.Offset
}

func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}

const documentColumns = `id, number, eit_id, customer, items, details, totals, created_at, updated_at`

func documentSelect(k Kind) string {
	cols := documentColumns
	if k.Extra {
		cols += `, extra_fields`
	}
	return `SELECT ` + cols + ` FROM ` + pgx.Identifier{k.Table}.Sanitize()
}

func scanDocument(k Kind, row pgx.Row) (Document, error) {
	var d Document
	dest := []any{&d.ID, &d.Number, &d.EITID, &d.Customer, &d.Items, &d.Details, &d.Totals, &d.CreatedAt, &d.UpdatedAt}
	if k.Extra {
		dest = append(dest, &d.ExtraFields)
	}
	err := row.Scan(dest...)
	return d, err
}

func (r *repository) ListDocuments(ctx context.Context, k Kind, filter ListFilter) ([]Document, error) {
	limit, offset := page(filter)
	args := []interface{}{limit, offset}
	var conditions []string
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conditions = append(conditions, fmt.Sprintf("(number ILIKE $%d OR customer->>'name' ILIKE $%d)", len(args), len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("(customer->>'id')::bigint = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	rows, err := r.db.Query(ctx, documentSelect(k)+where+` ORDER BY id DESC LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Document, error) { return scanDocument(k, row) })
}

func (r *repository) GetDocument(ctx context.Context, k Kind, id int64) (*Document, error) {
	d, err := scanDocument(k, r.db.QueryRow(ctx, documentSelect(k)+` WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, ErrDocumentNotFound)
	}
	return &d, nil
}

func (r *repository) CreateDocument(ctx context.Context, k Kind, d Document) (int64, error) {
	table := pgx.Identifier{k.Table}.Sanitize()
	var id int64
	var err error
	if k.Extra {
		err = r.db.QueryRow(ctx, `INSERT INTO `+table+` (number, eit_id, customer, items, details, totals, extra_fields)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			d.Number, d.EITID, d.Customer, d.Items, d.Details, d.Totals, d.ExtraFields).Scan(&id)
	} else {
		err = r.db.QueryRow(ctx, `INSERT INTO `+table+` (number, eit_id, customer, items, details, totals)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			d.Number, d.EITID, d.Customer, d.Items, d.Details, d.Totals).Scan(&id)
	}
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (r *repository) UpdateDocument(ctx context.Context, k Kind, d Document) error {
	table := pgx.Identifier{k.Table}.Sanitize()
	var tag pgconn.CommandTag
	var err error
	if k.Extra {
		tag, err = r.db.Exec(ctx, `UPDATE `+table+` SET number=$2, eit_id=$3, customer=$4, items=$5, details=$6, totals=$7,
extra_fields=$8, updated_at=NOW() WHERE id=$1`,
			d.ID, d.Number, d.EITID, d.Customer, d.Items, d.Details, d.Totals, d.ExtraFields)
	} else {
		tag, err = r.db.Exec(ctx, `UPDATE `+table+` SET number=$2, eit_id=$3, customer=$4, items=$5, details=$6, totals=$7,
updated_at=NOW() WHERE id=$1`,
			d.ID, d.Number, d.EITID, d.Customer, d.Items, d.Details, d.Totals)
	}
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *repository) DeleteDocument(ctx context.Context, k Kind, id int64) error {
	return r.delete(ctx, k.Table, id, ErrDocumentNotFound)
}

func (r *repository) delete(ctx context.Context, table string, id int64, sentinel error) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM `+pgx.Identifier{table}.Sanitize()+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return sentinel
	}
	return nil
}

const billingNoteColumns = `id, bn_code, customer_id, eit_id, bn_created_date, bn_due_date, bn_amount,
bn_outstanding_balance, bn_total, bn_remark, bn_recipient, bn_branch,
cus_name, cus_address, cus_phone, cus_fax, cus_attn, cus_div, cus_mobile, items, created_at, updated_at`

func scanBillingNote(row pgx.Row) (BillingNote, error) {
	var bn BillingNote
	p := &bn.Party
	err := row.Scan(&bn.ID, &bn.Code, &bn.CustomerID, &bn.EITID, &bn.CreatedDate, &bn.DueDate, &bn.Amount,
		&bn.OutstandingBalance, &bn.Total, &bn.Remark, &bn.Recipient, &bn.Branch,
		&p.Name, &p.Address, &p.Phone, &p.Fax, &p.Attn, &p.Division, &p.Mobile, &bn.Items, &bn.CreatedAt, &bn.UpdatedAt)
	return bn, err
}

func (r *repository) ListBillingNotes(ctx context.Context, filter ListFilter) ([]BillingNote, error) {
	limit, offset := page(filter)
	args := []interface{}{limit, offset}
	var conditions []string
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conditions = append(conditions, fmt.Sprintf("(bn_code ILIKE $%d OR cus_name ILIKE $%d)", len(args), len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	rows, err := r.db.Query(ctx, `SELECT `+billingNoteColumns+` FROM billing_notes`+where+` ORDER BY id DESC LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (BillingNote, error) { return scanBillingNote(row) })
}

func (r *repository) GetBillingNote(ctx context.Context, id int64) (*BillingNote, error) {
	bn, err := scanBillingNote(r.db.QueryRow(ctx, `SELECT `+billingNoteColumns+` FROM billing_notes WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, ErrBillingNoteNotFound)
	}
	return &bn, nil
}

func (r *repository) CreateBillingNote(ctx context.Context, bn BillingNote) (int64, error) {
	p := bn.Party
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO billing_notes (bn_code, customer_id, eit_id, bn_created_date, bn_due_date, bn_amount,
bn_outstanding_balance, bn_total, bn_remark, bn_recipient, bn_branch,
cus_name, cus_address, cus_phone, cus_fax, cus_attn, cus_div, cus_mobile, items)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19) RETURNING id`,
		bn.Code, bn.CustomerID, bn.EITID, bn.CreatedDate, bn.DueDate, bn.Amount,
		bn.OutstandingBalance, bn.Total, bn.Remark, bn.Recipient, bn.Branch,
		p.Name, p.Address, p.Phone, p.Fax, p.Attn, p.Division, p.Mobile, bn.Items).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (r *repository) UpdateBillingNote(ctx context.Context, bn BillingNote) error {
	p := bn.Party
	tag, err := r.db.Exec(ctx, `UPDATE billing_notes SET bn_code=$2, customer_id=$3, eit_id=$4, bn_created_date=$5, bn_due_date=$6,
bn_amount=$7, bn_outstanding_balance=$8, bn_total=$9, bn_remark=$10, bn_recipient=$11, bn_branch=$12,
cus_name=$13, cus_address=$14, cus_phone=$15, cus_fax=$16, cus_attn=$17, cus_div=$18, cus_mobile=$19, items=$20,
updated_at=NOW() WHERE id=$1`,
		bn.ID, bn.Code, bn.CustomerID, bn.EITID, bn.CreatedDate, bn.DueDate,
		bn.Amount, bn.OutstandingBalance, bn.Total, bn.Remark, bn.Recipient, bn.Branch,
		p.Name, p.Address, p.Phone, p.Fax, p.Attn, p.Division, p.Mobile, bn.Items)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBillingNoteNotFound
	}
	return nil
}

func (r *repository) DeleteBillingNote(ctx context.Context, id int64) error {
	return r.delete(ctx, "billing_notes", id, ErrBillingNoteNotFound)
}

const taxInvoiceColumns = `id, tax_invoice_code, issued_date, due_date, customer_id, eit_id,
customer_name, customer_address, customer_tax_id, customer_phone, customer_branch, payment_type, items, created_at, updated_at`

func scanTaxInvoice(row pgx.Row) (TaxInvoice, error) {
	var ti TaxInvoice
	err := row.Scan(&ti.ID, &ti.Code, &ti.IssuedDate, &ti.DueDate, &ti.CustomerID, &ti.EITID,
		&ti.CustomerName, &ti.CustomerAddress, &ti.CustomerTaxID, &ti.CustomerPhone, &ti.CustomerBranch, &ti.PaymentType,
		&ti.Items, &ti.CreatedAt, &ti.UpdatedAt)
	return ti, err
}

func (r *repository) ListTaxInvoices(ctx context.Context, filter ListFilter) ([]TaxInvoice, error) {
	limit, offset := page(filter)
	args := []interface{}{limit, offset}
	var conditions []string
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conditions = append(conditions, fmt.Sprintf("(tax_invoice_code ILIKE $%d OR customer_name ILIKE $%d)", len(args), len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	rows, err := r.db.Query(ctx, `SELECT `+taxInvoiceColumns+` FROM tax_invoices`+where+` ORDER BY id DESC LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TaxInvoice, error) { return scanTaxInvoice(row) })
}

func (r *repository) GetTaxInvoice(ctx context.Context, id int64) (*TaxInvoice, error) {
	ti, err := scanTaxInvoice(r.db.QueryRow(ctx, `SELECT `+taxInvoiceColumns+` FROM tax_invoices WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, ErrTaxInvoiceNotFound)
	}
	return &ti, nil
}

func (r *repository) CreateTaxInvoice(ctx context.Context, ti TaxInvoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO tax_invoices (tax_invoice_code, issued_date, due_date, customer_id, eit_id,
customer_name, customer_address, customer_tax_id, customer_phone, customer_branch, payment_type, items)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		ti.Code, ti.IssuedDate, ti.DueDate, ti.CustomerID, ti.EITID,
		ti.CustomerName, ti.CustomerAddress, ti.CustomerTaxID, ti.CustomerPhone, ti.CustomerBranch, ti.PaymentType, ti.Items).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (r *repository) UpdateTaxInvoice(ctx context.Context, ti TaxInvoice) error {
	tag, err := r.db.Exec(ctx, `UPDATE tax_invoices SET tax_invoice_code=$2, issued_date=$3, due_date=$4, customer_id=$5, eit_id=$6,
customer_name=$7, customer_address=$8, customer_tax_id=$9, customer_phone=$10, customer_branch=$11, payment_type=$12, items=$13,
updated_at=NOW() WHERE id=$1`,
		ti.ID, ti.Code, ti.IssuedDate, ti.DueDate, ti.CustomerID, ti.EITID,
		ti.CustomerName, ti.CustomerAddress, ti.CustomerTaxID, ti.CustomerPhone, ti.CustomerBranch, ti.PaymentType, ti.Items)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaxInvoiceNotFound
	}
	return nil
}

func (r *repository) DeleteTaxInvoice(ctx context.Context, id int64) error {
	return r.delete(ctx, "tax_invoices", id, ErrTaxInvoiceNotFound)
}
