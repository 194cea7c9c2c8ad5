package quotations

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

var ErrNotFound = fmt.Errorf("quotation: %w", httpx.ErrNotFound)

// Repository persists quotations and their items.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	crm.Directory
	// Sequences exposes the counter store bound to the same connection.
	Sequences() docseq.Store

	List(ctx context.Context, filter ListFilter) ([]Quotation, error)
	Get(ctx context.Context, id int64) (*Quotation, error)
	// Items returns the items of a quotation in id order.
	Items(ctx context.Context, quotationID int64) ([]Item, error)
	FileNameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
	Create(ctx context.Context, q Quotation) (int64, error)
	Update(ctx context.Context, q Quotation) error
	Delete(ctx context.Context, id int64) error
	InsertItem(ctx context.Context, it Item) (int64, error)
	UpdateItem(ctx context.Context, it Item) error
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

const quotationColumns = `id, qo_code, file_name, doc_type, created_date, customer_id, eit_id,
customer_name, customer_tax_id, customer_address, customer_email, customer_phone, customer_fax, customer_branch,
cus_respon_attn, cus_respon_div, cus_respon_mobile, cus_respon_cc, cus_respon_cc_div, cus_respon_cc_mobile, cus_respon_cc_email,
eit_name, eit_address, eit_mobile, eit_phone, eit_fax,
trade_terms, validity, delivery, payment_terms, shipment_location, invoice_date, remark,
is_archived, created_at, updated_at`

func scanQuotation(row pgx.Row) (Quotation, error) {
	var q Quotation
	s := &q.Snapshot
	d := &q.Details
	err := row.Scan(&q.ID, &q.QOCode, &q.FileName, &q.DocType, &q.CreatedDate, &s.CustomerID, &s.EITID,
		&s.CustomerName, &s.CustomerTaxID, &s.CustomerAddress, &s.CustomerEmail, &s.CustomerPhone, &s.CustomerFax, &s.CustomerBranch,
		&s.Attn, &s.AttnDivision, &s.AttnMobile, &s.CC, &s.CCDivision, &s.CCMobile, &s.CCEmail,
		&s.EITName, &s.EITAddress, &s.EITMobile, &s.EITPhone, &s.EITFax,
		&d.TradeTerms, &d.Validity, &d.Delivery, &d.PaymentTerms, &d.ShipmentLocation, &d.InvoiceDate, &d.Remark,
		&q.IsArchived, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Quotation, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var conditions []string
	args := []interface{}{limit, filter.Offset}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(qo_code ILIKE $%d OR file_name ILIKE $%d OR customer_name ILIKE $%d)", n, n, n))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.Archived != nil {
		args = append(args, *filter.Archived)
		conditions = append(conditions, fmt.Sprintf("is_archived = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	rows, err := r.db.Query(ctx, `SELECT `+quotationColumns+` FROM quotations `+where+` ORDER BY id DESC LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Quotation, error) { return scanQuotation(row) })
}

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := scanQuotation(r.db.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if q.Items, err = r.Items(ctx, id); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *repository) Items(ctx context.Context, quotationID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT id, quotation_id, quo_item, quo_model, quo_description, specification, quantity, quo_total, image
FROM quotation_items WHERE quotation_id = $1 ORDER BY id`, quotationID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ID, &it.QuotationID, &it.Code, &it.Model, &it.Description, &it.Specification,
			&it.Quantity, &it.Total, &it.Image)
		return it, err
	})
}

func (r *repository) FileNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quotations WHERE file_name = $1 AND id <> $2)`, name, excludeID).Scan(&taken)
	return taken, err
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	s, d := q.Snapshot, q.Details
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO quotations (qo_code, file_name, doc_type, created_date, customer_id, eit_id,
customer_name, customer_tax_id, customer_address, customer_email, customer_phone, customer_fax, customer_branch,
cus_respon_attn, cus_respon_div, cus_respon_mobile, cus_respon_cc, cus_respon_cc_div, cus_respon_cc_mobile, cus_respon_cc_email,
eit_name, eit_address, eit_mobile, eit_phone, eit_fax,
trade_terms, validity, delivery, payment_terms, shipment_location, invoice_date, remark, is_archived)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33)
RETURNING id`,
		q.QOCode, q.FileName, q.DocType, q.CreatedDate, s.CustomerID, s.EITID,
		s.CustomerName, s.CustomerTaxID, s.CustomerAddress, s.CustomerEmail, s.CustomerPhone, s.CustomerFax, s.CustomerBranch,
		s.Attn, s.AttnDivision, s.AttnMobile, s.CC, s.CCDivision, s.CCMobile, s.CCEmail,
		s.EITName, s.EITAddress, s.EITMobile, s.EITPhone, s.EITFax,
		d.TradeTerms, d.Validity, d.Delivery, d.PaymentTerms, d.ShipmentLocation, d.InvoiceDate, d.Remark, q.IsArchived).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, q Quotation) error {
	s, d := q.Snapshot, q.Details
	tag, err := r.db.Exec(ctx, `UPDATE quotations SET qo_code=$2, file_name=$3, doc_type=$4, created_date=$5, customer_id=$6, eit_id=$7,
customer_name=$8, customer_tax_id=$9, customer_address=$10, customer_email=$11, customer_phone=$12, customer_fax=$13, customer_branch=$14,
cus_respon_attn=$15, cus_respon_div=$16, cus_respon_mobile=$17, cus_respon_cc=$18, cus_respon_cc_div=$19, cus_respon_cc_mobile=$20,
cus_respon_cc_email=$21, eit_name=$22, eit_address=$23, eit_mobile=$24, eit_phone=$25, eit_fax=$26,
trade_terms=$27, validity=$28, delivery=$29, payment_terms=$30, shipment_location=$31, invoice_date=$32, remark=$33,
is_archived=$34, updated_at=NOW() WHERE id=$1`,
		q.ID, q.QOCode, q.FileName, q.DocType, q.CreatedDate, s.CustomerID, s.EITID,
		s.CustomerName, s.CustomerTaxID, s.CustomerAddress, s.CustomerEmail, s.CustomerPhone, s.CustomerFax, s.CustomerBranch,
		s.Attn, s.AttnDivision, s.AttnMobile, s.CC, s.CCDivision, s.CCMobile, s.CCEmail,
		s.EITName, s.EITAddress, s.EITMobile, s.EITPhone, s.EITFax,
		d.TradeTerms, d.Validity, d.Delivery, d.PaymentTerms, d.ShipmentLocation, d.InvoiceDate, d.Remark, q.IsArchived)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quotations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertItem(ctx context.Context, it Item) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO quotation_items
(quotation_id, quo_item, quo_model, quo_description, specification, quantity, quo_total, image)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		it.QuotationID, it.Code, it.Model, it.Description, it.Specification, it.Quantity, it.Total, it.Image).Scan(&id)
	return id, err
}

func (r *repository) UpdateItem(ctx context.Context, it Item) error {
	_, err := r.db.Exec(ctx, `UPDATE quotation_items SET quo_item=$2, quo_model=$3, quo_description=$4, specification=$5,
quantity=$6, quo_total=$7, image=$8 WHERE id=$1`,
		it.ID, it.Code, it.Model, it.Description, it.Specification, it.Quantity, it.Total, it.Image)
	return err
}
