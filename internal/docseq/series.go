package docseq

import (
	"fmt"
	"time"
)

// QuotationSeries numbers quotations per calendar year. Codes may repeat across
// quotations; uniqueness of a quotation is carried by its file name.
func QuotationSeries(now time.Time) Series {
	return Series{
		Key:    fmt.Sprintf("quotation:%d", now.Year()),
		Table:  "quotations",
		Column: "qo_code",
		Format: Format{Prefix: QuotationPrefix(now), Pad: 4, Scoped: true},
	}
}

// QuotationPrefix returns the "QUO {year}-" prefix for now.
func QuotationPrefix(now time.Time) string {
	return fmt.Sprintf("QUO %d-", now.Year())
}

// TaxInvoiceSeries numbers from the trailing digits of every tax invoice code
// and renders with the current year.
func TaxInvoiceSeries(now time.Time) Series {
	return Series{
		Key:    "tax_invoice",
		Table:  "tax_invoices",
		Column: "tax_invoice_code",
		Format: Format{Prefix: fmt.Sprintf("INV %d-", now.Year()), Pad: 4},
	}
}

// BillingNoteSeries numbers billing notes as plain four digit codes.
func BillingNoteSeries() Series {
	return plain("billing_note", "billing_notes", "bn_code")
}

// InvoiceSeries numbers invoices.
func InvoiceSeries() Series {
	return plain("invoice", "invoices", "number")
}

// ReceiptSeries numbers receipts.
func ReceiptSeries() Series {
	return plain("receipt", "receipts", "number")
}

// PurchaseOrderSeries numbers purchase orders.
func PurchaseOrderSeries() Series {
	return plain("purchase_order", "purchase_orders", "number")
}

func plain(key, table, column string) Series {
	return Series{Key: key, Table: table, Column: column, Format: Format{Pad: 4}}
}
