package billing

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-crm/internal/docseq"
)

// Kind describes one of the documents stored in the shared
// number/customer/items/details/totals layout.
type Kind struct {
	Name      string
	Table     string
	Path      string
	Label     string
	Extra     bool
	newSeries func() docseq.Series
}

// Series returns the numbering series of k.
func (k Kind) Series() docseq.Series { return k.newSeries() }

var (
	KindInvoice       = Kind{Name: "invoice", Table: "invoices", Path: "/invoices", Label: "Invoice", newSeries: docseq.InvoiceSeries}
	KindReceipt       = Kind{Name: "receipt", Table: "receipts", Path: "/receipts", Label: "Receipt", newSeries: docseq.ReceiptSeries}
	KindPurchaseOrder = Kind{Name: "purchase_order", Table: "purchase_orders", Path: "/purchase-orders", Label: "Purchase order", Extra: true, newSeries: docseq.PurchaseOrderSeries}
)

// Kinds lists every ledger-style document.
func Kinds() []Kind { return []Kind{KindInvoice, KindReceipt, KindPurchaseOrder} }

// Document is an invoice, receipt or purchase order. The customer block is a
// JSON snapshot taken when the document is written.
type Document struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	EITID       *int64          `json:"eit_id"`
	Customer    json.RawMessage `json:"customer"`
	Items       json.RawMessage `json:"items"`
	Details     json.RawMessage `json:"details"`
	Totals      json.RawMessage `json:"totals"`
	ExtraFields json.RawMessage `json:"extra_fields,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Party is the customer block frozen onto a billing note.
type Party struct {
	Name     string `json:"cus_name"`
	Address  string `json:"cus_address"`
	Phone    string `json:"cus_phone"`
	Fax      string `json:"cus_fax"`
	Attn     string `json:"cus_attn"`
	Division string `json:"cus_div"`
	Mobile   string `json:"cus_mobile"`
}

// BillingNote requests payment for one or more delivered documents.
type BillingNote struct {
	ID                 int64           `json:"id"`
	Code               string          `json:"bn_code"`
	CustomerID         *int64          `json:"customer_id"`
	EITID              *int64          `json:"eit_id"`
	CreatedDate        time.Time       `json:"bn_created_date"`
	DueDate            *time.Time      `json:"bn_due_date"`
	Amount             decimal.Decimal `json:"bn_amount"`
	OutstandingBalance decimal.Decimal `json:"bn_outstanding_balance"`
	Total              decimal.Decimal `json:"bn_total"`
	Remark             string          `json:"bn_remark"`
	Recipient          string          `json:"bn_recipient"`
	Branch             string          `json:"bn_branch"`
	Party
	Items     json.RawMessage `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TaxLine is one row of a tax invoice.
type TaxLine struct {
	Product     string          `json:"product"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	Price       decimal.Decimal `json:"price"`
	Tax         decimal.Decimal `json:"tax"`
	Unit        string          `json:"unit"`
}

// TaxInvoice is numbered "INV {year}-NNNN".
type TaxInvoice struct {
	ID              int64      `json:"id"`
	Code            string     `json:"tax_invoice_code"`
	IssuedDate      time.Time  `json:"issued_date"`
	DueDate         *time.Time `json:"due_date"`
	CustomerID      *int64     `json:"customer_id"`
	EITID           *int64     `json:"eit_id"`
	CustomerName    string     `json:"customer_name"`
	CustomerAddress string     `json:"customer_address"`
	CustomerTaxID   string     `json:"customer_tax_id"`
	CustomerPhone   string     `json:"customer_phone"`
	CustomerBranch  string     `json:"customer_branch"`
	PaymentType     string     `json:"payment_type"`
	Items           []TaxLine  `json:"items"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ListFilter narrows list queries.
type ListFilter struct {
	Search     string
	CustomerID *int64
	Limit      int
	Offset     int
}

// NextCodeResponse previews a tax invoice code.
type NextCodeResponse struct {
	NextCode string `json:"next_code"`
}
