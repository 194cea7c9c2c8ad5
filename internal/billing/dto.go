package billing

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/shared"
)

// DocumentRequest creates or updates an invoice, receipt or purchase order.
// Absent fields keep their stored value on update.
type DocumentRequest struct {
	Number      *string         `json:"number" validate:"omitempty,max=100"`
	CustomerID  *int64          `json:"customer_id"`
	EITID       *int64          `json:"eit_id"`
	EITName     string          `json:"eit_name" validate:"max=255"`
	Customer    json.RawMessage `json:"customer"`
	Items       json.RawMessage `json:"items"`
	Details     json.RawMessage `json:"details"`
	Totals      json.RawMessage `json:"totals"`
	ExtraFields json.RawMessage `json:"extra_fields"`
}

// PartyInput carries the cus_* values of a billing note. Blank values keep the
// customer's own data.
type PartyInput struct {
	Address  string `json:"cus_address"`
	Phone    string `json:"cus_phone"`
	Fax      string `json:"cus_fax"`
	Attn     string `json:"cus_attn"`
	Division string `json:"cus_div"`
	Mobile   string `json:"cus_mobile"`
}

func (in PartyInput) apply(p *Party) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&p.Address, in.Address)
	set(&p.Phone, in.Phone)
	set(&p.Fax, in.Fax)
	set(&p.Attn, in.Attn)
	set(&p.Division, in.Division)
	set(&p.Mobile, in.Mobile)
}

// BillingNoteRequest creates or updates a billing note.
type BillingNoteRequest struct {
	Code               *string         `json:"bn_code" validate:"omitempty,max=100"`
	CustomerID         *int64          `json:"customer_id"`
	CustomerName       string          `json:"customer_name" validate:"max=255"`
	EITID              *int64          `json:"eit_id"`
	EITName            string          `json:"eit_name" validate:"max=255"`
	CreatedDate        *string         `json:"bn_created_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate            *string         `json:"bn_due_date" validate:"omitempty,datetime=2006-01-02"`
	Amount             shared.Amount   `json:"bn_amount"`
	OutstandingBalance shared.Amount   `json:"bn_outstanding_balance"`
	Total              shared.Amount   `json:"bn_total"`
	Remark             *string         `json:"bn_remark"`
	Recipient          *string         `json:"bn_recipient" validate:"omitempty,max=255"`
	Branch             *string         `json:"bn_branch" validate:"omitempty,max=255"`
	Items              json.RawMessage `json:"items"`
	PartyInput
}

// TaxLineInput is one submitted tax invoice row.
type TaxLineInput struct {
	Product     string        `json:"product"`
	Description string        `json:"description"`
	Qty         shared.Amount `json:"qty"`
	Price       shared.Amount `json:"price"`
	Tax         shared.Amount `json:"tax"`
	Unit        string        `json:"unit"`
}

func (in TaxLineInput) line() TaxLine {
	return TaxLine{
		Product:     strings.TrimSpace(in.Product),
		Description: strings.TrimSpace(in.Description),
		Qty:         in.Qty.Value,
		Price:       in.Price.Value,
		Tax:         in.Tax.Value,
		Unit:        strings.TrimSpace(in.Unit),
	}
}

// TaxInvoiceRequest creates or updates a tax invoice.
type TaxInvoiceRequest struct {
	Code           *string        `json:"tax_invoice_code" validate:"omitempty,max=100"`
	IssuedDate     *string        `json:"issued_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate        *string        `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	CustomerID     *int64         `json:"customer_id"`
	CustomerName   string         `json:"customer_name" validate:"max=255"`
	EITID          *int64         `json:"eit_id"`
	EITName        string         `json:"eit_name" validate:"max=255"`
	CustomerBranch *string        `json:"customer_branch" validate:"omitempty,max=255"`
	PaymentType    *string        `json:"payment_type" validate:"omitempty,max=255"`
	Items          []TaxLineInput `json:"items"`
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// jsonValue checks that raw is a JSON object (open '{') or array (open '[').
// An absent value yields def.
func jsonValue(field string, raw json.RawMessage, open byte, def string) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return json.RawMessage(def), nil
	}
	if raw[0] != open || !json.Valid(raw) {
		if open == '[' {
			return nil, httpx.FieldError(field, "must be a JSON array")
		}
		return nil, httpx.FieldError(field, "must be a JSON object")
	}
	return raw, nil
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func date(field string, v *string) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	d, err := shared.ParseDate(*v)
	if err != nil {
		return nil, httpx.FieldError(field, "must be YYYY-MM-DD")
	}
	return d, nil
}
