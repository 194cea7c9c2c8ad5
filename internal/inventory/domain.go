package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

const (
	// StateFinished moves a manufacturing order's quantity into stock.
	StateFinished = "Finished"
	// StatusDelivered takes a delivery's order amount out of stock.
	StatusDelivered = "delivered"
	// StatusPending is the initial delivery status.
	StatusPending = "pending"
	// DefaultState is the initial manufacturing order state.
	DefaultState = "Draft"
)

// Inventory is the stock level of one product.
type Inventory struct {
	ID        int64           `json:"id"`
	ProductNo string          `json:"product_no"`
	Name      string          `json:"name"`
	Stock     decimal.Decimal `json:"stock"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Label is the name shown in stock notifications.
func (i Inventory) Label() string {
	if i.Name != "" {
		return i.Name
	}
	return i.ProductNo
}

// ManufacturingOrder tracks production of a product for a customer.
type ManufacturingOrder struct {
	ID              int64           `json:"id"`
	JobOrderCode    string          `json:"job_order_code"`
	Product         string          `json:"product"`
	ProductNo       string          `json:"product_no"`
	CustomerID      *int64          `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	Quantity        decimal.Decimal `json:"quantity"`
	State           string          `json:"state"`
	ComponentStatus string          `json:"component_status"`
	FinishNotified  bool            `json:"finish_notified"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Delivery ships an order amount of a product to a customer.
type Delivery struct {
	ID             int64           `json:"id"`
	CustomerID     *int64          `json:"customer_id"`
	CustomerName   string          `json:"customer_name"`
	ProductNo      string          `json:"product_no"`
	OrderAmount    decimal.Decimal `json:"order_amount"`
	Status         string          `json:"status"`
	TrackingNumber string          `json:"tracking_number"`
	Courier        string          `json:"courier"`
	DeliveryDate   *time.Time      `json:"delivery_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Delivered reports whether status counts as delivered.
func Delivered(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), StatusDelivered)
}

// Finished reports whether state counts as finished.
func Finished(state string) bool {
	return shared.SameState(state, StateFinished)
}

var (
	ErrInventoryNotFound = fmt.Errorf("inventory: %w", httpx.ErrNotFound)
	ErrOrderNotFound     = fmt.Errorf("manufacturing order: %w", httpx.ErrNotFound)
	ErrDeliveryNotFound  = fmt.Errorf("delivery: %w", httpx.ErrNotFound)
)

// ErrNegativeStock triggered when movement would result negative qty.
var ErrNegativeStock = fmt.Errorf("inventory: negative stock not allowed: %w", httpx.ErrConflict)

// ErrInvalidQuantity indicates invalid qty.
var ErrInvalidQuantity = httpx.FieldError("delta", "must be non zero")
