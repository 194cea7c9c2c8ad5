package quotations

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/shared"
)

const (
	DocTypeQuotation = "quotation"
	defaultFileBase  = "quotation"
	defaultFileExt   = ".pdf"
)

// Details are the printed commercial terms of a quotation.
type Details struct {
	TradeTerms       string     `json:"trade_terms"`
	Validity         string     `json:"validity"`
	Delivery         string     `json:"delivery"`
	PaymentTerms     string     `json:"payment_terms"`
	ShipmentLocation string     `json:"shipment_location"`
	InvoiceDate      *time.Time `json:"invoice_date"`
	Remark           string     `json:"remark"`
}

// Quotation is a priced offer sent to a customer. qo_code may repeat across
// quotations; file_name is unique when set.
type Quotation struct {
	ID          int64     `json:"id"`
	QOCode      string    `json:"qo_code"`
	FileName    string    `json:"file_name"`
	DocType     string    `json:"doc_type"`
	CreatedDate time.Time `json:"created_date"`
	crm.Snapshot
	Details
	IsArchived bool      `json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Items      []Item    `json:"items"`
}

// Item is one line of a quotation. Code is hierarchical: "1", "1.1", "2".
type Item struct {
	ID            int64           `json:"id"`
	QuotationID   int64           `json:"quotation_id"`
	Code          string          `json:"quo_item"`
	Model         string          `json:"quo_model"`
	Description   string          `json:"quo_description"`
	Specification string          `json:"specification"`
	Quantity      decimal.Decimal `json:"quantity"`
	Total         decimal.Decimal `json:"quo_total"`
	Image         string          `json:"image"`
}

// UnitPrice is the stored total divided by quantity.
func (i Item) UnitPrice() decimal.Decimal {
	return shared.UnitPrice(i.Total, i.Quantity)
}

// ListFilter narrows List results.
type ListFilter struct {
	Search     string
	CustomerID *int64
	Archived   *bool
	Limit      int
	Offset     int
}
