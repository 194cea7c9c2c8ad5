package quotations

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/itemcode"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/shared"
)

const dateLayout = shared.DateLayout

// ItemInput is one row of the item grid as submitted by the editor.
type ItemInput struct {
	RowID         int64         `json:"row_id"`
	ID            int64         `json:"id"`
	Item          string        `json:"item" validate:"max=255"`
	Model         string        `json:"model"`
	Description   string        `json:"description"`
	Specification string        `json:"specification"`
	Qty           shared.Amount `json:"qty"`
	Price         shared.Amount `json:"price"`
	Image         string        `json:"image"`
	ImageChanged  bool          `json:"image_changed"`
}

func (in ItemInput) quantity() decimal.Decimal {
	return in.Qty.Or(decimal.NewFromInt(1))
}

func (in ItemInput) total() decimal.Decimal {
	return shared.LineTotal(in.quantity(), in.Price.Or(decimal.Zero))
}

func (in ItemInput) row() itemcode.Row {
	return itemcode.Row{
		RowID:         in.RowID,
		ID:            in.ID,
		Title:         in.Item,
		Model:         in.Model,
		Quantity:      in.quantity().InexactFloat64(),
		Description:   in.Description,
		Specification: in.Specification,
	}
}

func rows(items []ItemInput) []itemcode.Row {
	out := make([]itemcode.Row, len(items))
	for i, it := range items {
		out[i] = it.row()
	}
	return out
}

// DetailsInput carries optional edits of the commercial terms.
type DetailsInput struct {
	TradeTerms       *string `json:"trade_terms"`
	Validity         *string `json:"validity"`
	Delivery         *string `json:"delivery"`
	PaymentTerms     *string `json:"payment_terms"`
	ShipmentLocation *string `json:"shipment_location"`
	InvoiceDate      *string `json:"invoice_date" validate:"omitempty,datetime=2006-01-02"`
	Remark           *string `json:"remark"`
}

func (in DetailsInput) apply(d *Details) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&d.TradeTerms, in.TradeTerms)
	set(&d.Validity, in.Validity)
	set(&d.Delivery, in.Delivery)
	set(&d.PaymentTerms, in.PaymentTerms)
	set(&d.ShipmentLocation, in.ShipmentLocation)
	set(&d.Remark, in.Remark)
	if in.InvoiceDate != nil {
		date, err := shared.ParseDate(*in.InvoiceDate)
		if err != nil {
			return httpx.FieldError("invoice_date", "must be YYYY-MM-DD")
		}
		d.InvoiceDate = date
	}
	return nil
}

// QuotationRequest is the create and update payload. On create qo_code is
// ignored and always allocated.
type QuotationRequest struct {
	QOCode            *string `json:"qo_code"`
	FileName          *string `json:"file_name" validate:"omitempty,max=255"`
	DocType           *string `json:"doc_type" validate:"omitempty,max=50"`
	CreatedDate       *string `json:"created_date" validate:"omitempty,datetime=2006-01-02"`
	IsArchived        *bool   `json:"is_archived"`
	CustomerID        *int64  `json:"customer_id"`
	CustomerName      string  `json:"customer_name"`
	EITID             *int64  `json:"eit_id"`
	EITName           string  `json:"eit_name"`
	SourceQuotationID *int64  `json:"source_quotation_id"`
	crm.SnapshotOverrides
	DetailsInput
	Items []ItemInput `json:"items" validate:"dive"`
}

// ItemOverride edits one copied item during a duplicate. Blank fields keep
// the copied value.
type ItemOverride struct {
	RowID         int64         `json:"row_id"`
	Item          string        `json:"item"`
	Model         string        `json:"model"`
	Description   string        `json:"description"`
	Specification string        `json:"specification"`
	Qty           shared.Amount `json:"qty"`
	Price         shared.Amount `json:"price"`
}

// DuplicateRequest carries optional edits applied to the copy only.
type DuplicateRequest struct {
	DetailsInput
	Items []ItemOverride `json:"items"`
}

// NextCodeResponse previews the next quotation code.
type NextCodeResponse struct {
	QOCode string `json:"qo_code"`
}

// ImageUploadResponse returns the storage key of an uploaded item image.
type ImageUploadResponse struct {
	Image string `json:"image"`
}
