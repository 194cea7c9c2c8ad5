package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/notifications"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

// ListFilter narrows list queries.
type ListFilter struct {
	Search string
	Status string
	Limit  int
	Offset int
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListInventories(ctx context.Context, filter ListFilter) ([]Inventory, error)
	GetInventory(ctx context.Context, id int64) (*Inventory, error)
	DeleteInventory(ctx context.Context, id int64) error
	ListOrders(ctx context.Context, filter ListFilter) ([]ManufacturingOrder, error)
	GetOrder(ctx context.Context, id int64) (*ManufacturingOrder, error)
	DeleteOrder(ctx context.Context, id int64) error
	ListDeliveries(ctx context.Context, filter ListFilter) ([]Delivery, error)
	GetDelivery(ctx context.Context, id int64) (*Delivery, error)
	DeleteDelivery(ctx context.Context, id int64) error
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	crm.Directory
	// InventoryForUpdate locks the inventory row of productNo.
	InventoryForUpdate(ctx context.Context, productNo string) (Inventory, error)
	InventoryByIDForUpdate(ctx context.Context, id int64) (Inventory, error)
	CreateInventory(ctx context.Context, inv Inventory) (int64, error)
	UpdateInventory(ctx context.Context, inv Inventory) error
	OrderForUpdate(ctx context.Context, id int64) (ManufacturingOrder, error)
	CreateOrder(ctx context.Context, mo ManufacturingOrder) (int64, error)
	UpdateOrder(ctx context.Context, mo ManufacturingOrder) error
	DeliveryForUpdate(ctx context.Context, id int64) (Delivery, error)
	CreateDelivery(ctx context.Context, d Delivery) (int64, error)
	UpdateDelivery(ctx context.Context, d Delivery) error
	Emit(ctx context.Context, kind notifications.Kind, message string, once bool) (bool, error)
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	crm.Directory
	tx pgx.Tx
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{Directory: crm.NewDirectory(tx), tx: tx})
	})
}

func page(filter ListFilter) (int, int) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return limit, filter.Offset
}

func where(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

func rowsAffected(tag pgconn.CommandTag, err error, sentinel error) error {
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel
	}
	return nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}

const inventoryColumns = `id, product_no, name, stock, updated_at`

func scanInventory(row pgx.Row) (Inventory, error) {
	var inv Inventory
	err := row.Scan(&inv.ID, &inv.ProductNo, &inv.Name, &inv.Stock, &inv.UpdatedAt)
	return inv, err
}

func (r *Repository) ListInventories(ctx context.Context, filter ListFilter) ([]Inventory, error) {
	limit, offset := page(filter)
	args := []interface{}{limit, offset}
	var conditions []string
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conditions = append(conditions, fmt.Sprintf("(product_no ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}
	rows, err := r.pool.Query(ctx, `SELECT `+inventoryColumns+` FROM inventories`+where(conditions)+` ORDER BY product_no LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Inventory, error) { return scanInventory(row) })
}

func (r *Repository) GetInventory(ctx context.Context, id int64) (*Inventory, error) {
	inv, err := scanInventory(r.pool.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM inventories WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, ErrInventoryNotFound)
	}
	return &inv, nil
}

func (r *Repository) DeleteInventory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM inventories WHERE id = $1`, id)
	return rowsAffected(tag, err, ErrInventoryNotFound)
}

const orderColumns = `id, job_order_code, product, product_no, customer_id, customer_name, quantity, state,
component_status, finish_notified, created_at, updated_at`

func scanOrder(row pgx.Row) (ManufacturingOrder, error) {
	var mo ManufacturingOrder
	err := row.Scan(&mo.ID, &mo.JobOrderCode, &mo.Product, &mo.ProductNo, &mo.CustomerID, &mo.CustomerName, &mo.Quantity,
		&mo.State, &mo.ComponentStatus, &mo.FinishNotified, &mo.CreatedAt, &mo.UpdatedAt)
	return mo, err
}

func (r *Repository) ListOrders(ctx context.Context, filter ListFilter) ([]ManufacturingOrder, error) {
	limit, offset := page(filter)
	args := []interface{}{limit, offset}
	var conditions []string
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conditions = append(conditions, fmt.Sprintf("(job_order_code ILIKE $%d OR product_no ILIKE $%d OR customer_name ILIKE $%d)", len(args), len(args), len(args)))
	}
	if s := strings.TrimSpace(filter.Status); s != "" {
		args = append(args, s)
		conditions = append(conditions, fmt.Sprintf("lower(state) = lower($%d)", len(args)))
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM manufacturing_orders`+where(conditions)+` ORDER BY id DESC LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ManufacturingOrder, error) { return scanOrder(row) })
}

func (r *Repository) GetOrder(ctx context.Context, id int64) (*ManufacturingOrder, error) {
	mo, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM manufacturing_orders WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	return &mo, nil
}

func (r *Repository) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM manufacturing_orders WHERE id = $1`, id)
	return rowsAffected(tag, err, ErrOrderNotFound)
}

const deliveryColumns = `id, customer_id, customer_name, product_no, order_amount, status, tracking_number, courier,
delivery_date, created_at, updated_at`

func scanDelivery(row pgx.Row) (Delivery, error) {
	var d Delivery
	err := row.Scan(&d.ID, &d.CustomerID, &d.CustomerName, &d.ProductNo, &d.OrderAmount, &d.Status, &d.TrackingNumber,
		&d.Courier, &d.DeliveryDate, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *Repository) ListDeliveries(ctx context.Context, filter ListFilter) ([]Delivery, error) {
	limit, offset := page(filter)
	args := []interface{}{limit, offset}
	var conditions []string
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conditions = append(conditions, fmt.Sprintf("(tracking_number ILIKE $%d OR product_no ILIKE $%d OR customer_name ILIKE $%d)", len(args), len(args), len(args)))
	}
	if s := strings.TrimSpace(filter.Status); s != "" {
		args = append(args, s)
		conditions = append(conditions, fmt.Sprintf("lower(status) = lower($%d)", len(args)))
	}
	rows, err := r.pool.Query(ctx, `SELECT `+deliveryColumns+` FROM deliveries`+where(conditions)+` ORDER BY id DESC LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Delivery, error) { return scanDelivery(row) })
}

func (r *Repository) GetDelivery(ctx context.Context, id int64) (*Delivery, error) {
	d, err := scanDelivery(r.pool.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, ErrDeliveryNotFound)
	}
	return &d, nil
}

func (r *Repository) DeleteDelivery(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM deliveries WHERE id = $1`, id)
	return rowsAffected(tag, err, ErrDeliveryNotFound)
}

func (t *txRepo) InventoryForUpdate(ctx context.Context, productNo string) (Inventory, error) {
	inv, err := scanInventory(t.tx.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM inventories WHERE product_no = $1 FOR UPDATE`, productNo))
	return inv, notFound(err, ErrInventoryNotFound)
}

func (t *txRepo) InventoryByIDForUpdate(ctx context.Context, id int64) (Inventory, error) {
	inv, err := scanInventory(t.tx.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM inventories WHERE id = $1 FOR UPDATE`, id))
	return inv, notFound(err, ErrInventoryNotFound)
}

func (t *txRepo) CreateInventory(ctx context.Context, inv Inventory) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO inventories (product_no, name, stock) VALUES ($1, $2, $3) RETURNING id`,
		inv.ProductNo, inv.Name, inv.Stock).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (t *txRepo) UpdateInventory(ctx context.Context, inv Inventory) error {
	tag, err := t.tx.Exec(ctx, `UPDATE inventories SET product_no=$2, name=$3, stock=$4, updated_at=NOW() WHERE id=$1`,
		inv.ID, inv.ProductNo, inv.Name, inv.Stock)
	return rowsAffected(tag, err, ErrInventoryNotFound)
}

func (t *txRepo) OrderForUpdate(ctx context.Context, id int64) (ManufacturingOrder, error) {
	mo, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM manufacturing_orders WHERE id = $1 FOR UPDATE`, id))
	return mo, notFound(err, ErrOrderNotFound)
}

func (t *txRepo) CreateOrder(ctx context.Context, mo ManufacturingOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO manufacturing_orders (job_order_code, product, product_no, customer_id, customer_name,
quantity, state, component_status) VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		mo.JobOrderCode, mo.Product, mo.ProductNo, mo.CustomerID, mo.CustomerName, mo.Quantity, mo.State, mo.ComponentStatus).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (t *txRepo) UpdateOrder(ctx context.Context, mo ManufacturingOrder) error {
	tag, err := t.tx.Exec(ctx, `UPDATE manufacturing_orders SET job_order_code=$2, product=$3, product_no=$4, customer_id=$5,
customer_name=$6, quantity=$7, state=$8, component_status=$9, finish_notified=$10, updated_at=NOW() WHERE id=$1`,
		mo.ID, mo.JobOrderCode, mo.Product, mo.ProductNo, mo.CustomerID, mo.CustomerName, mo.Quantity, mo.State,
		mo.ComponentStatus, mo.FinishNotified)
	return rowsAffected(tag, err, ErrOrderNotFound)
}

func (t *txRepo) DeliveryForUpdate(ctx context.Context, id int64) (Delivery, error) {
	d, err := scanDelivery(t.tx.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1 FOR UPDATE`, id))
	return d, notFound(err, ErrDeliveryNotFound)
}

func (t *txRepo) CreateDelivery(ctx context.Context, d Delivery) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO deliveries (customer_id, customer_name, product_no, order_amount, status,
tracking_number, courier, delivery_date) VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		d.CustomerID, d.CustomerName, d.ProductNo, d.OrderAmount, d.Status, d.TrackingNumber, d.Courier, d.DeliveryDate).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

func (t *txRepo) UpdateDelivery(ctx context.Context, d Delivery) error {
	tag, err := t.tx.Exec(ctx, `UPDATE deliveries SET customer_id=$2, customer_name=$3, product_no=$4, order_amount=$5, status=$6,
tracking_number=$7, courier=$8, delivery_date=$9, updated_at=NOW() WHERE id=$1`,
		d.ID, d.CustomerID, d.CustomerName, d.ProductNo, d.OrderAmount, d.Status, d.TrackingNumber, d.Courier, d.DeliveryDate)
	return rowsAffected(tag, err, ErrDeliveryNotFound)
}

func (t *txRepo) Emit(ctx context.Context, kind notifications.Kind, message string, once bool) (bool, error) {
	return notifications.Emit(ctx, t.tx, kind, message, once)
}
