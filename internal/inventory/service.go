package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/notifications"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/shared"
	appshared "github.com/odyssey-erp/odyssey-crm/internal/shared"
)

const unknownCustomer = "Unknown Customer"

// AuditPort stores and reads the stock movement trail.
type AuditPort interface {
	Record(ctx context.Context, log appshared.AuditLog) error
	List(ctx context.Context, entity, entityID string, limit int) ([]appshared.AuditLog, error)
}

// MetricsPort counts stock movements.
type MetricsPort interface {
	StockMoved(source string)
}

const auditEntity = "inventory"

// IdempotencyPort guards manual adjustments against replays.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
	Metrics            MetricsPort
}

// Service coordinates inventory operations.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	allowNeg    bool
	metrics     MetricsPort
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service. audit and idem may be nil.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, idempotency: idem, allowNeg: cfg.AllowNegativeStock, metrics: cfg.Metrics, logger: logger, now: time.Now}
}

func (s *Service) ListInventories(ctx context.Context, filter ListFilter) ([]Inventory, error) {
	return s.repo.ListInventories(ctx, filter)
}

func (s *Service) GetInventory(ctx context.Context, id int64) (*Inventory, error) {
	return s.repo.GetInventory(ctx, id)
}

func (s *Service) DeleteInventory(ctx context.Context, id int64) error {
	return s.repo.DeleteInventory(ctx, id)
}

// Movements returns the newest recorded stock movements of an inventory row.
func (s *Service) Movements(ctx context.Context, id int64, limit int) ([]appshared.AuditLog, error) {
	if _, err := s.repo.GetInventory(ctx, id); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []appshared.AuditLog{}, nil
	}
	return s.audit.List(ctx, auditEntity, strconv.FormatInt(id, 10), limit)
}

// CreateInventory adds a product. A non-zero opening stock counts as a change
// from zero.
func (s *Service) CreateInventory(ctx context.Context, req InventoryRequest) (*Inventory, error) {
	var productNo, name string
	setTrimmed(&productNo, req.ProductNo)
	setTrimmed(&name, req.Name)
	if productNo == "" {
		return nil, httpx.FieldError("product_no", "is required")
	}
	if name == "" {
		name = productNo
	}
	var id int64
	var moves []Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv := Inventory{ProductNo: productNo, Name: name}
		var err error
		if inv.ID, err = tx.CreateInventory(ctx, inv); err != nil {
			return err
		}
		id = inv.ID
		m, err := s.setStock(ctx, tx, inv, req.Stock.Or(decimal.Zero), "inventory", inv.ID)
		if err != nil {
			return err
		}
		moves = appendMove(nil, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMoves(ctx, moves)
	return s.repo.GetInventory(ctx, id)
}

// UpdateInventory edits a product; a changed stock emits an update.
func (s *Service) UpdateInventory(ctx context.Context, id int64, req InventoryRequest) (*Inventory, error) {
	var moves []Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.InventoryByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		setTrimmed(&inv.ProductNo, req.ProductNo)
		setTrimmed(&inv.Name, req.Name)
		if inv.ProductNo == "" {
			return httpx.FieldError("product_no", "is required")
		}
		if err := tx.UpdateInventory(ctx, inv); err != nil {
			return err
		}
		if req.Stock.Set {
			m, err := s.setStock(ctx, tx, inv, req.Stock.Value, "inventory", inv.ID)
			if err != nil {
				return err
			}
			moves = appendMove(nil, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMoves(ctx, moves)
	return s.repo.GetInventory(ctx, id)
}

// AdjustStock moves the stock of an inventory row by req.Delta. A non-empty
// idempotency key makes a replayed request fail with a conflict.
func (s *Service) AdjustStock(ctx context.Context, id int64, req AdjustRequest, idempotencyKey string) (*Inventory, error) {
	if !req.Delta.Set || req.Delta.Value.IsZero() {
		return nil, ErrInvalidQuantity
	}
	key := ""
	if idempotencyKey = strings.TrimSpace(idempotencyKey); idempotencyKey != "" && s.idempotency != nil {
		key = fmt.Sprintf("inventory:adjust:%d:%s", id, idempotencyKey)
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			if errors.Is(err, appshared.ErrIdempotencyConflict) {
				return nil, fmt.Errorf("%w: %v", httpx.ErrConflict, err)
			}
			return nil, err
		}
	}
	var moves []Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.InventoryByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		m, err := s.setStock(ctx, tx, inv, inv.Stock.Add(req.Delta.Value), "adjustment", inv.ID)
		if err != nil {
			return err
		}
		moves = appendMove(nil, m)
		return nil
	})
	if err != nil {
		if key != "" {
			_ = s.idempotency.Delete(ctx, key)
		}
		return nil, err
	}
	s.recordMoves(ctx, moves)
	return s.repo.GetInventory(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, filter ListFilter) ([]ManufacturingOrder, error) {
	return s.repo.ListOrders(ctx, filter)
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*ManufacturingOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	return s.repo.DeleteOrder(ctx, id)
}

// CreateManufacturingOrder stores an order; one created as Finished stocks its
// quantity immediately.
func (s *Service) CreateManufacturingOrder(ctx context.Context, req OrderRequest) (*ManufacturingOrder, error) {
	var id int64
	var moves []Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		mo := ManufacturingOrder{State: DefaultState, Quantity: decimal.NewFromInt(1)}
		if err := applyOrder(ctx, tx, &mo, req); err != nil {
			return err
		}
		var err error
		if mo.ID, err = tx.CreateOrder(ctx, mo); err != nil {
			return err
		}
		id = mo.ID
		if Finished(mo.State) {
			m, err := s.move(ctx, tx, mo.ProductNo, mo.Quantity, "manufacturing_order", mo.ID)
			if err != nil {
				return err
			}
			moves = appendMove(nil, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMoves(ctx, moves)
	return s.repo.GetOrder(ctx, id)
}

// UpdateManufacturingOrder applies req. The transition into Finished adds the
// order quantity to the inventory of its product number, creating it when
// missing, in the same transaction.
func (s *Service) UpdateManufacturingOrder(ctx context.Context, id int64, req OrderRequest) (*ManufacturingOrder, error) {
	var moves []Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		mo, err := tx.OrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		wasFinished := Finished(mo.State)
		if err := applyOrder(ctx, tx, &mo, req); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, mo); err != nil {
			return err
		}
		if !wasFinished && Finished(mo.State) {
			m, err := s.move(ctx, tx, mo.ProductNo, mo.Quantity, "manufacturing_order", mo.ID)
			if err != nil {
				return err
			}
			moves = appendMove(nil, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordMoves(ctx, moves)
	return s.repo.GetOrder(ctx, id)
}

func applyOrder(ctx context.Context, tx TxRepository, mo *ManufacturingOrder, req OrderRequest) error {
	setTrimmed(&mo.JobOrderCode, req.JobOrderCode)
	setTrimmed(&mo.Product, req.Product)
	setTrimmed(&mo.ProductNo, req.ProductNo)
	setTrimmed(&mo.State, req.State)
	setTrimmed(&mo.ComponentStatus, req.ComponentStatus)
	if req.Quantity.Set {
		if req.Quantity.Value.IsNegative() {
			return httpx.FieldError("quantity", "must not be negative")
		}
		mo.Quantity = req.Quantity.Value
	}
	c, err := resolveCustomer(ctx, tx, req.CustomerID, req.CustomerName)
	if err != nil {
		return err
	}
	if c != nil {
		mo.CustomerID = &c.ID
		mo.CustomerName = c.CompanyName
	}
	return nil
}

func (s *Service) ListDeliveries(ctx context.Context, filter ListFilter) ([]Delivery, error) {
	return s.repo.ListDeliveries(ctx, filter)
}

func (s *Service) GetDelivery(ctx context.Context, id int64) (*Delivery, error) {
	return s.repo.GetDelivery(ctx, id)
}

func (s *Service) DeleteDelivery(ctx context.Context, id int64) error {
	return s.repo.DeleteDelivery(ctx, id)
}

// CreateDelivery stores a delivery; one created as delivered ships at once.
func (s *Service) CreateDelivery(ctx context.Context, req DeliveryRequest) (*Delivery, error) {
	var id int64
	var moves []Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		d := Delivery{Status: StatusPending}
		if err := applyDelivery(ctx, tx, &d, req); err != nil {
			return err
		}
		var err error
		if d.ID, err = tx.CreateDelivery(ctx, d); err != nil {
			return err
		}
		id = d.ID
		moves, err = s.transition(ctx, tx, d, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordMoves(ctx, moves)
	return s.repo.GetDelivery(ctx, id)
}

// UpdateDelivery applies req. Moving to delivered takes the order amount out
// of stock and announces the delivery; moving back from delivered returns it.
func (s *Service) UpdateDelivery(ctx context.Context, id int64, req DeliveryRequest) (*Delivery, error) {
	var moves []Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		d, err := tx.DeliveryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		wasDelivered := Delivered(d.Status)
		if err := applyDelivery(ctx, tx, &d, req); err != nil {
			return err
		}
		if err := tx.UpdateDelivery(ctx, d); err != nil {
			return err
		}
		moves, err = s.transition(ctx, tx, d, wasDelivered)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordMoves(ctx, moves)
	return s.repo.GetDelivery(ctx, id)
}

func (s *Service) transition(ctx context.Context, tx TxRepository, d Delivery, wasDelivered bool) ([]Movement, error) {
	isDelivered := Delivered(d.Status)
	switch {
	case isDelivered && !wasDelivered:
		customer := d.CustomerName
		if customer == "" {
			customer = unknownCustomer
		}
		if _, err := tx.Emit(ctx, notifications.KindDeliveryUpdates, notifications.DeliveredMessage(customer), false); err != nil {
			return nil, err
		}
		m, err := s.move(ctx, tx, d.ProductNo, d.OrderAmount.Neg(), "delivery", d.ID)
		if err != nil {
			return nil, err
		}
		return appendMove(nil, m), nil
	case wasDelivered && !isDelivered:
		m, err := s.move(ctx, tx, d.ProductNo, d.OrderAmount, "delivery", d.ID)
		if err != nil {
			return nil, err
		}
		return appendMove(nil, m), nil
	}
	return nil, nil
}

func applyDelivery(ctx context.Context, tx TxRepository, d *Delivery, req DeliveryRequest) error {
	setTrimmed(&d.ProductNo, req.ProductNo)
	setTrimmed(&d.TrackingNumber, req.TrackingNumber)
	setTrimmed(&d.Courier, req.Courier)
	if req.Status != nil {
		d.Status = strings.ToLower(strings.TrimSpace(*req.Status))
	}
	if req.OrderAmount.Set {
		if req.OrderAmount.Value.IsNegative() {
			return httpx.FieldError("order_amount", "must not be negative")
		}
		d.OrderAmount = req.OrderAmount.Value
	}
	if req.DeliveryDate != nil {
		date, err := shared.ParseDate(*req.DeliveryDate)
		if err != nil {
			return httpx.FieldError("delivery_date", "must be YYYY-MM-DD")
		}
		d.DeliveryDate = date
	}
	c, err := resolveCustomer(ctx, tx, req.CustomerID, req.CustomerName)
	if err != nil {
		return err
	}
	if c != nil {
		d.CustomerID = &c.ID
		d.CustomerName = c.CompanyName
	}
	return nil
}

// move changes the stock of productNo by delta, creating the inventory row
// when missing. A blank product number or zero delta is a no-op.
func (s *Service) move(ctx context.Context, tx TxRepository, productNo string, delta decimal.Decimal, source string, sourceID int64) (*Movement, error) {
	productNo = strings.TrimSpace(productNo)
	if productNo == "" || delta.IsZero() {
		return nil, nil
	}
	inv, err := tx.InventoryForUpdate(ctx, productNo)
	if errors.Is(err, ErrInventoryNotFound) {
		inv = Inventory{ProductNo: productNo, Name: productNo}
		if inv.ID, err = tx.CreateInventory(ctx, inv); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return s.setStock(ctx, tx, inv, inv.Stock.Add(delta), source, sourceID)
}

// setStock writes the new stock level and emits the inventory_updates
// notification when it differs from the current one.
func (s *Service) setStock(ctx context.Context, tx TxRepository, inv Inventory, to decimal.Decimal, source string, sourceID int64) (*Movement, error) {
	if inv.Stock.Equal(to) {
		return nil, nil
	}
	if to.IsNegative() && !s.allowNeg {
		return nil, ErrNegativeStock
	}
	m := &Movement{InventoryID: inv.ID, ProductNo: inv.ProductNo, From: inv.Stock, To: to, Source: source, SourceID: sourceID, At: s.now()}
	inv.Stock = to
	if err := tx.UpdateInventory(ctx, inv); err != nil {
		return nil, err
	}
	if _, err := tx.Emit(ctx, notifications.KindInventoryUpdates, notifications.InventoryChangedMessage(inv.Label(), m.From, m.To), false); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) recordMoves(ctx context.Context, moves []Movement) {
	for _, m := range moves {
		if s.metrics != nil {
			s.metrics.StockMoved(m.Source)
		}
		if s.audit == nil {
			continue
		}
		err := s.audit.Record(ctx, appshared.AuditLog{
			Action:   "inventory:" + m.Source,
			Entity:   auditEntity,
			EntityID: strconv.FormatInt(m.InventoryID, 10),
			Meta: map[string]any{
				"product_no": m.ProductNo,
				"from":       m.From.String(),
				"to":         m.To.String(),
				"delta":      m.Delta().String(),
				"source_id":  m.SourceID,
			},
			At: m.At,
		})
		if err != nil {
			s.logger.Warn("record stock movement", slog.Int64("inventory_id", m.InventoryID), slog.Any("error", err))
		}
	}
}

func appendMove(moves []Movement, m *Movement) []Movement {
	if m == nil {
		return moves
	}
	return append(moves, *m)
}

func resolveCustomer(ctx context.Context, tx TxRepository, id *int64, name string) (*crm.Customer, error) {
	if id != nil {
		c, err := tx.GetCustomer(ctx, *id)
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.FieldError("customer_id", "customer not found")
		}
		return c, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	return tx.EnsureCustomer(ctx, name)
}
