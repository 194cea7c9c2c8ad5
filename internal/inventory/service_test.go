package inventory

import (
	"context"
	"errors"
	"maps"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/notifications"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	salesshared "github.com/odyssey-erp/odyssey-crm/internal/sales/shared"
	appshared "github.com/odyssey-erp/odyssey-crm/internal/shared"
)

type emitted struct {
	Kind    notifications.Kind
	Message string
}

type memoryRepo struct {
	nextID      int64
	inventories map[int64]Inventory
	orders      map[int64]ManufacturingOrder
	deliveries  map[int64]Delivery
	customers   map[int64]crm.Customer
	events      []emitted
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		inventories: map[int64]Inventory{},
		orders:      map[int64]ManufacturingOrder{},
		deliveries:  map[int64]Delivery{},
		customers:   map[int64]crm.Customer{},
	}
}

func (r *memoryRepo) id() int64 {
	r.nextID++
	return r.nextID
}

// WithTx restores every map when fn fails.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	inventories, orders, deliveries := maps.Clone(r.inventories), maps.Clone(r.orders), maps.Clone(r.deliveries)
	customers, events := maps.Clone(r.customers), len(r.events)
	if err := fn(ctx, r); err != nil {
		r.inventories, r.orders, r.deliveries, r.customers = inventories, orders, deliveries, customers
		r.events = r.events[:events]
		return err
	}
	return nil
}

func (r *memoryRepo) ListInventories(ctx context.Context, filter ListFilter) ([]Inventory, error) {
	var out []Inventory
	for _, inv := range r.inventories {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductNo < out[j].ProductNo })
	return out, nil
}

func (r *memoryRepo) GetInventory(ctx context.Context, id int64) (*Inventory, error) {
	inv, ok := r.inventories[id]
	if !ok {
		return nil, ErrInventoryNotFound
	}
	return &inv, nil
}

func (r *memoryRepo) DeleteInventory(ctx context.Context, id int64) error {
	if _, ok := r.inventories[id]; !ok {
		return ErrInventoryNotFound
	}
	delete(r.inventories, id)
	return nil
}

func (r *memoryRepo) ListOrders(ctx context.Context, filter ListFilter) ([]ManufacturingOrder, error) {
	var out []ManufacturingOrder
	for _, mo := range r.orders {
		out = append(out, mo)
	}
	return out, nil
}

func (r *memoryRepo) GetOrder(ctx context.Context, id int64) (*ManufacturingOrder, error) {
	mo, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &mo, nil
}

func (r *memoryRepo) DeleteOrder(ctx context.Context, id int64) error {
	if _, ok := r.orders[id]; !ok {
		return ErrOrderNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *memoryRepo) ListDeliveries(ctx context.Context, filter ListFilter) ([]Delivery, error) {
	var out []Delivery
	for _, d := range r.deliveries {
		out = append(out, d)
	}
	return out, nil
}

func (r *memoryRepo) GetDelivery(ctx context.Context, id int64) (*Delivery, error) {
	d, ok := r.deliveries[id]
	if !ok {
		return nil, ErrDeliveryNotFound
	}
	return &d, nil
}

func (r *memoryRepo) DeleteDelivery(ctx context.Context, id int64) error {
	if _, ok := r.deliveries[id]; !ok {
		return ErrDeliveryNotFound
	}
	delete(r.deliveries, id)
	return nil
}

func (r *memoryRepo) GetCustomer(ctx context.Context, id int64) (*crm.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, crm.ErrCustomerNotFound
	}
	return &c, nil
}

func (r *memoryRepo) GetEIT(ctx context.Context, id int64) (*crm.EIT, error) {
	return nil, crm.ErrEITNotFound
}

func (r *memoryRepo) EnsureCustomer(ctx context.Context, name string) (*crm.Customer, error) {
	name = strings.TrimSpace(name)
	for _, c := range r.customers {
		if c.CompanyName == name {
			return &c, nil
		}
	}
	c := crm.Customer{ID: r.id(), CompanyName: name}
	r.customers[c.ID] = c
	return &c, nil
}

func (r *memoryRepo) EnsureEIT(ctx context.Context, name string) (*crm.EIT, error) {
	return &crm.EIT{ID: r.id(), OrganizationName: name}, nil
}

func (r *memoryRepo) InventoryForUpdate(ctx context.Context, productNo string) (Inventory, error) {
	for _, inv := range r.inventories {
		if inv.ProductNo == productNo {
			return inv, nil
		}
	}
	return Inventory{}, ErrInventoryNotFound
}

func (r *memoryRepo) InventoryByIDForUpdate(ctx context.Context, id int64) (Inventory, error) {
	inv, ok := r.inventories[id]
	if !ok {
		return Inventory{}, ErrInventoryNotFound
	}
	return inv, nil
}

func (r *memoryRepo) CreateInventory(ctx context.Context, inv Inventory) (int64, error) {
	for _, existing := range r.inventories {
		if existing.ProductNo == inv.ProductNo {
			return 0, httpx.ErrDuplicate
		}
	}
	inv.ID = r.id()
	r.inventories[inv.ID] = inv
	return inv.ID, nil
}

func (r *memoryRepo) UpdateInventory(ctx context.Context, inv Inventory) error {
	if _, ok := r.inventories[inv.ID]; !ok {
		return ErrInventoryNotFound
	}
	r.inventories[inv.ID] = inv
	return nil
}

func (r *memoryRepo) OrderForUpdate(ctx context.Context, id int64) (ManufacturingOrder, error) {
	mo, ok := r.orders[id]
	if !ok {
		return ManufacturingOrder{}, ErrOrderNotFound
	}
	return mo, nil
}

func (r *memoryRepo) CreateOrder(ctx context.Context, mo ManufacturingOrder) (int64, error) {
	mo.ID = r.id()
	r.orders[mo.ID] = mo
	return mo.ID, nil
}

func (r *memoryRepo) UpdateOrder(ctx context.Context, mo ManufacturingOrder) error {
	r.orders[mo.ID] = mo
	return nil
}

func (r *memoryRepo) DeliveryForUpdate(ctx context.Context, id int64) (Delivery, error) {
	d, ok := r.deliveries[id]
	if !ok {
		return Delivery{}, ErrDeliveryNotFound
	}
	return d, nil
}

func (r *memoryRepo) CreateDelivery(ctx context.Context, d Delivery) (int64, error) {
	d.ID = r.id()
	r.deliveries[d.ID] = d
	return d.ID, nil
}

func (r *memoryRepo) UpdateDelivery(ctx context.Context, d Delivery) error {
	r.deliveries[d.ID] = d
	return nil
}

func (r *memoryRepo) Emit(ctx context.Context, kind notifications.Kind, message string, once bool) (bool, error) {
	r.events = append(r.events, emitted{Kind: kind, Message: message})
	return true, nil
}

func (r *memoryRepo) stockOf(productNo string) decimal.Decimal {
	for _, inv := range r.inventories {
		if inv.ProductNo == productNo {
			return inv.Stock
		}
	}
	return decimal.Zero
}

type memoryAudit struct {
	logs []appshared.AuditLog
	err  error
}

func (a *memoryAudit) Record(ctx context.Context, log appshared.AuditLog) error {
	if a.err != nil {
		return a.err
	}
	log.ID = int64(len(a.logs) + 1)
	a.logs = append(a.logs, log)
	return nil
}

func (a *memoryAudit) List(ctx context.Context, entity, entityID string, limit int) ([]appshared.AuditLog, error) {
	out := []appshared.AuditLog{}
	for i := len(a.logs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if a.logs[i].Entity == entity && a.logs[i].EntityID == entityID {
			out = append(out, a.logs[i])
		}
	}
	return out, nil
}

type countingMetrics map[string]int

func (m countingMetrics) StockMoved(source string) { m[source]++ }

type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys[key] {
		return appshared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func str(s string) *string { return &s }

func amount(v int64) salesshared.Amount { return salesshared.NewAmount(decimal.NewFromInt(v)) }

func newTestService(repo *memoryRepo, cfg ServiceConfig) (*Service, *memoryAudit, *memoryIdempotency) {
	audit := &memoryAudit{}
	idem := &memoryIdempotency{keys: map[string]bool{}}
	svc := NewService(repo, audit, idem, cfg, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }
	return svc, audit, idem
}

func TestCreateInventoryEmitsOpeningStock(t *testing.T) {
	repo := newMemoryRepo()
	svc, audit, _ := newTestService(repo, ServiceConfig{AllowNegativeStock: true})

	inv, err := svc.CreateInventory(context.Background(), InventoryRequest{ProductNo: str(" P-100 "), Name: str("Gear box"), Stock: amount(10)})
	require.NoError(t, err)
	assert.Equal(t, "P-100", inv.ProductNo)
	assert.True(t, decimal.NewFromInt(10).Equal(inv.Stock))
	require.Len(t, repo.events, 1)
	assert.Equal(t, notifications.KindInventoryUpdates, repo.events[0].Kind)
	assert.Equal(t, `Inventory Updates: "Gear box" stock changes from "0" to "10"`, repo.events[0].Message)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "inventory:inventory", audit.logs[0].Action)

	empty, err := svc.CreateInventory(context.Background(), InventoryRequest{ProductNo: str("P-200")})
	require.NoError(t, err)
	assert.Equal(t, "P-200", empty.Name)
	assert.Len(t, repo.events, 1, "zero opening stock is not a change")

	_, err = svc.CreateInventory(context.Background(), InventoryRequest{Name: str("nameless")})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateInventoryEmitsOnlyOnStockChange(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo, ServiceConfig{AllowNegativeStock: true})
	ctx := context.Background()
	inv, err := svc.CreateInventory(ctx, InventoryRequest{ProductNo: str("P-1"), Stock: amount(5)})
	require.NoError(t, err)

	_, err = svc.UpdateInventory(ctx, inv.ID, InventoryRequest{Name: str("Bolt")})
	require.NoError(t, err)
	_, err = svc.UpdateInventory(ctx, inv.ID, InventoryRequest{Stock: amount(5)})
	require.NoError(t, err)
	assert.Len(t, repo.events, 1)

	updated, err := svc.UpdateInventory(ctx, inv.ID, InventoryRequest{Stock: amount(8)})
	require.NoError(t, err)
	assert.Equal(t, "Bolt", updated.Name)
	require.Len(t, repo.events, 2)
	assert.Equal(t, `Inventory Updates: "Bolt" stock changes from "5" to "8"`, repo.events[1].Message)
}

func TestAdjustStockIdempotency(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, idem := newTestService(repo, ServiceConfig{})
	ctx := context.Background()
	inv, err := svc.CreateInventory(ctx, InventoryRequest{ProductNo: str("P-1"), Stock: amount(5)})
	require.NoError(t, err)

	adjusted, err := svc.AdjustStock(ctx, inv.ID, AdjustRequest{Delta: amount(-2)}, "req-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3).Equal(adjusted.Stock))

	_, err = svc.AdjustStock(ctx, inv.ID, AdjustRequest{Delta: amount(-2)}, "req-1")
	require.ErrorIs(t, err, httpx.ErrConflict)
	assert.True(t, decimal.NewFromInt(3).Equal(repo.stockOf("P-1")))

	_, err = svc.AdjustStock(ctx, inv.ID, AdjustRequest{Delta: amount(-10)}, "req-2")
	require.ErrorIs(t, err, ErrNegativeStock)
	assert.NotContains(t, idem.keys, "inventory:adjust:1:req-2", "failed adjustments release their key")

	_, err = svc.AdjustStock(ctx, inv.ID, AdjustRequest{}, "")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestFinishingManufacturingOrderStocksQuantity(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo, ServiceConfig{AllowNegativeStock: true})
	ctx := context.Background()

	mo, err := svc.CreateManufacturingOrder(ctx, OrderRequest{JobOrderCode: str("JO-1"), ProductNo: str("P-9"), Quantity: amount(4), CustomerName: "Acme Co"})
	require.NoError(t, err)
	assert.Equal(t, DefaultState, mo.State)
	require.NotNil(t, mo.CustomerID)
	assert.Equal(t, "Acme Co", mo.CustomerName)
	assert.Empty(t, repo.inventories)

	_, err = svc.UpdateManufacturingOrder(ctx, mo.ID, OrderRequest{State: str("Finished")})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4).Equal(repo.stockOf("P-9")))
	require.Len(t, repo.events, 1)
	assert.Equal(t, `Inventory Updates: "P-9" stock changes from "0" to "4"`, repo.events[0].Message)

	_, err = svc.UpdateManufacturingOrder(ctx, mo.ID, OrderRequest{ComponentStatus: str("complete")})
	require.NoError(t, err)
	_, err = svc.UpdateManufacturingOrder(ctx, mo.ID, OrderRequest{State: str("In Progress")})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4).Equal(repo.stockOf("P-9")), "only the transition into Finished moves stock")

	_, err = svc.UpdateManufacturingOrder(ctx, mo.ID, OrderRequest{State: str("finished")})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(8).Equal(repo.stockOf("P-9")))
}

func TestManufacturingOrderCreatedFinished(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo, ServiceConfig{AllowNegativeStock: true})

	_, err := svc.CreateManufacturingOrder(context.Background(), OrderRequest{ProductNo: str("P-1"), State: str("Finished"), Quantity: amount(2)})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(repo.stockOf("P-1")))

	_, err = svc.CreateManufacturingOrder(context.Background(), OrderRequest{State: str("Finished"), Quantity: amount(2)})
	require.NoError(t, err)
	assert.Len(t, repo.inventories, 1, "orders without product number move nothing")
}

func TestDeliveryLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc, audit, _ := newTestService(repo, ServiceConfig{AllowNegativeStock: true})
	ctx := context.Background()
	_, err := svc.CreateInventory(ctx, InventoryRequest{ProductNo: str("P-1"), Name: str("Widget"), Stock: amount(10)})
	require.NoError(t, err)
	repo.events = nil

	d, err := svc.CreateDelivery(ctx, DeliveryRequest{CustomerName: "Acme Co", ProductNo: str("P-1"), OrderAmount: amount(3), DeliveryDate: str("2025-06-05")})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, d.Status)
	require.NotNil(t, d.DeliveryDate)
	assert.Empty(t, repo.events)

	_, err = svc.UpdateDelivery(ctx, d.ID, DeliveryRequest{Status: str("delivered")})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(7).Equal(repo.stockOf("P-1")))
	require.Len(t, repo.events, 2)
	assert.Equal(t, notifications.KindDeliveryUpdates, repo.events[0].Kind)
	assert.Equal(t, `Delivery: Successful delivery to the "Acme Co"`, repo.events[0].Message)
	assert.Equal(t, `Inventory Updates: "Widget" stock changes from "10" to "7"`, repo.events[1].Message)

	_, err = svc.UpdateDelivery(ctx, d.ID, DeliveryRequest{TrackingNumber: str("TH123")})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(7).Equal(repo.stockOf("P-1")))

	_, err = svc.UpdateDelivery(ctx, d.ID, DeliveryRequest{Status: str("pending")})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(repo.stockOf("P-1")))
	assert.Len(t, audit.logs, 3)
}

func TestDeliveryWithoutCustomerAndNegativeStock(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo, ServiceConfig{AllowNegativeStock: true})

	_, err := svc.CreateDelivery(context.Background(), DeliveryRequest{ProductNo: str("P-5"), OrderAmount: amount(2), Status: str("delivered")})
	require.NoError(t, err)
	assert.Equal(t, `Delivery: Successful delivery to the "Unknown Customer"`, repo.events[0].Message)
	assert.True(t, decimal.NewFromInt(-2).Equal(repo.stockOf("P-5")))
}

func TestDeliveryRollsBackWhenStockWouldGoNegative(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo, ServiceConfig{})
	ctx := context.Background()

	d, err := svc.CreateDelivery(ctx, DeliveryRequest{ProductNo: str("P-5"), OrderAmount: amount(2)})
	require.NoError(t, err)

	_, err = svc.UpdateDelivery(ctx, d.ID, DeliveryRequest{Status: str("delivered")})
	require.ErrorIs(t, err, ErrNegativeStock)
	require.ErrorIs(t, err, httpx.ErrConflict)
	assert.Equal(t, StatusPending, repo.deliveries[d.ID].Status)
	assert.Empty(t, repo.events)
	assert.Empty(t, repo.inventories)
}

func TestUnknownCustomerIDRejected(t *testing.T) {
	svc, _, _ := newTestService(newMemoryRepo(), ServiceConfig{})
	missing := int64(99)
	_, err := svc.CreateDelivery(context.Background(), DeliveryRequest{CustomerID: &missing})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	repo := newMemoryRepo()
	svc, audit, _ := newTestService(repo, ServiceConfig{})
	audit.err = errors.New("audit down")

	inv, err := svc.CreateInventory(context.Background(), InventoryRequest{ProductNo: str("P-1"), Stock: amount(1)})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1).Equal(inv.Stock))
}

func TestMovementsListNewestFirstAndCountMetrics(t *testing.T) {
	repo := newMemoryRepo()
	metrics := countingMetrics{}
	svc, _, _ := newTestService(repo, ServiceConfig{AllowNegativeStock: true, Metrics: metrics})
	ctx := context.Background()

	inv, err := svc.CreateInventory(ctx, InventoryRequest{ProductNo: str("P-1"), Stock: amount(5)})
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, inv.ID, AdjustRequest{Delta: amount(3)}, "")
	require.NoError(t, err)

	moves, err := svc.Movements(ctx, inv.ID, 0)
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, "inventory:adjustment", moves[0].Action)
	assert.Equal(t, "8", moves[0].Meta["to"])
	assert.Equal(t, "inventory:inventory", moves[1].Action)
	assert.Equal(t, countingMetrics{"inventory": 1, "adjustment": 1}, metrics)

	_, err = svc.Movements(ctx, 999, 0)
	require.ErrorIs(t, err, ErrInventoryNotFound)
}
