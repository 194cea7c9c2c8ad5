package inventory

import (
	"strings"

	salesshared "github.com/odyssey-erp/odyssey-crm/internal/sales/shared"
)

// InventoryRequest creates or edits an inventory row.
type InventoryRequest struct {
	ProductNo *string            `json:"product_no" validate:"omitempty,max=100"`
	Name      *string            `json:"name" validate:"omitempty,max=255"`
	Stock     salesshared.Amount `json:"stock"`
}

// AdjustRequest moves stock by Delta.
type AdjustRequest struct {
	Delta salesshared.Amount `json:"delta"`
	Note  string             `json:"note" validate:"max=500"`
}

// OrderRequest creates or edits a manufacturing order.
type OrderRequest struct {
	JobOrderCode    *string            `json:"job_order_code" validate:"omitempty,max=50"`
	Product         *string            `json:"product" validate:"omitempty,max=255"`
	ProductNo       *string            `json:"product_no" validate:"omitempty,max=100"`
	CustomerID      *int64             `json:"customer_id"`
	CustomerName    string             `json:"customer_name" validate:"max=255"`
	Quantity        salesshared.Amount `json:"quantity"`
	State           *string            `json:"state" validate:"omitempty,max=50"`
	ComponentStatus *string            `json:"component_status" validate:"omitempty,max=50"`
}

// DeliveryRequest creates or edits a delivery.
type DeliveryRequest struct {
	CustomerID     *int64             `json:"customer_id"`
	CustomerName   string             `json:"customer_name" validate:"max=255"`
	ProductNo      *string            `json:"product_no" validate:"omitempty,max=100"`
	OrderAmount    salesshared.Amount `json:"order_amount"`
	Status         *string            `json:"status" validate:"omitempty,oneof=pending delivered"`
	TrackingNumber *string            `json:"tracking_number" validate:"omitempty,max=100"`
	Courier        *string            `json:"courier" validate:"omitempty,max=100"`
	DeliveryDate   *string            `json:"delivery_date" validate:"omitempty,datetime=2006-01-02"`
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
