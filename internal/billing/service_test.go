package billing

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

var fixedNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepository) *Service {
	return NewService(repo, nil, WithClock(func() time.Time { return fixedNow }))
}

func str(s string) *string { return &s }

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func decode[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestCreateDocumentAllocatesSequentialNumbers(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.CreateDocument(ctx, KindInvoice, DocumentRequest{})
	require.NoError(t, err)
	second, err := svc.CreateDocument(ctx, KindInvoice, DocumentRequest{})
	require.NoError(t, err)
	receipt, err := svc.CreateDocument(ctx, KindReceipt, DocumentRequest{})
	require.NoError(t, err)

	assert.Equal(t, "0001", first.Number)
	assert.Equal(t, "0002", second.Number)
	assert.Equal(t, "0001", receipt.Number, "each kind has its own series")
	assert.JSONEq(t, `[]`, string(first.Items))
	assert.JSONEq(t, `{}`, string(first.Totals))
}

func TestCreateDocumentContinuesAfterHandEnteredNumber(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	manual, err := svc.CreateDocument(ctx, KindInvoice, DocumentRequest{Number: str(" INV-0041 ")})
	require.NoError(t, err)
	assert.Equal(t, "INV-0041", manual.Number)

	next, err := svc.CreateDocument(ctx, KindInvoice, DocumentRequest{})
	require.NoError(t, err)
	assert.Equal(t, "0042", next.Number)
}

func TestCreateDocumentRejectsTakenNumber(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.CreateDocument(ctx, KindInvoice, DocumentRequest{Number: str("0007")})
	require.NoError(t, err)
	_, err = svc.CreateDocument(ctx, KindInvoice, DocumentRequest{Number: str("0007")})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
	assert.Contains(t, err.Error(), "Invoice number must be unique")
}

func TestUpdateDocumentNumberRules(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	a, err := svc.CreateDocument(ctx, KindReceipt, DocumentRequest{})
	require.NoError(t, err)
	b, err := svc.CreateDocument(ctx, KindReceipt, DocumentRequest{})
	require.NoError(t, err)

	kept, err := svc.UpdateDocument(ctx, KindReceipt, a.ID, DocumentRequest{Number: str("  ")})
	require.NoError(t, err)
	assert.Equal(t, a.Number, kept.Number)

	same, err := svc.UpdateDocument(ctx, KindReceipt, a.ID, DocumentRequest{Number: str(a.Number)})
	require.NoError(t, err)
	assert.Equal(t, a.Number, same.Number)

	_, err = svc.UpdateDocument(ctx, KindReceipt, a.ID, DocumentRequest{Number: str(b.Number)})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
	assert.Contains(t, err.Error(), "Receipt number must be unique")

	renamed, err := svc.UpdateDocument(ctx, KindReceipt, a.ID, DocumentRequest{Number: str("R-100")})
	require.NoError(t, err)
	assert.Equal(t, "R-100", renamed.Number)
}

func TestDocumentCustomerBlockSnapshotsLinkedCustomer(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()
	c := repo.addCustomer(crm.Customer{CompanyName: "Acme Co", TaxID: "0105551234567", Address: "1 Main Rd", Attn: "Somchai"})

	req := decode[DocumentRequest](t, `{"customer_id": `+itoa(c.ID)+`, "customer": {"address": "Branch office"}, "eit_name": "Odyssey Ltd"}`)
	doc, err := svc.CreateDocument(ctx, KindPurchaseOrder, req)
	require.NoError(t, err)

	var party map[string]any
	require.NoError(t, json.Unmarshal(doc.Customer, &party))
	assert.Equal(t, "Acme Co", party["name"])
	assert.Equal(t, "0105551234567", party["tax_id"])
	assert.Equal(t, "Branch office", party["address"], "submitted keys win")
	assert.Equal(t, "Somchai", party["attn"])
	require.NotNil(t, doc.EITID)
	assert.JSONEq(t, `{}`, string(doc.ExtraFields))

	repo.customers[c.ID] = crm.Customer{ID: c.ID, CompanyName: "Acme Renamed"}
	stored, err := svc.GetDocument(ctx, KindPurchaseOrder, doc.ID)
	require.NoError(t, err)
	assert.Contains(t, string(stored.Customer), "Acme Co")
}

func TestDocumentRejectsMalformedJSONBlocks(t *testing.T) {
	svc := newTestService(newMockRepository())

	_, err := svc.CreateDocument(context.Background(), KindInvoice, DocumentRequest{Items: json.RawMessage(`{"a":1}`)})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.CreateDocument(context.Background(), KindInvoice, DocumentRequest{Details: json.RawMessage(`[1]`)})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.CreateDocument(context.Background(), KindInvoice, DocumentRequest{CustomerID: new(int64)})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestBillingNoteSnapshotsCustomerWithoutMutatingIt(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()
	c := repo.addCustomer(crm.Customer{CompanyName: "Acme Co", Address: "1 Main Rd", Phone: "02-111", Attn: "Somchai", AttnMobile: "081"})

	req := decode[BillingNoteRequest](t, `{
		"customer_name": "Acme Co",
		"cus_phone": "02-999",
		"bn_due_date": "2025-06-30",
		"bn_amount": "12,500.5",
		"bn_total": 13375.54,
		"items": [{"invoice": "0001"}]
	}`)
	bn, err := svc.CreateBillingNote(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "0001", bn.Code)
	require.NotNil(t, bn.CustomerID)
	assert.Equal(t, c.ID, *bn.CustomerID)
	assert.Equal(t, "Acme Co", bn.Name)
	assert.Equal(t, "1 Main Rd", bn.Address)
	assert.Equal(t, "02-999", bn.Phone)
	assert.Equal(t, "081", bn.Mobile)
	assert.True(t, decimal.RequireFromString("12500.50").Equal(bn.Amount))
	assert.Equal(t, "2025-06-02", bn.CreatedDate.Format("2006-01-02"))
	require.NotNil(t, bn.DueDate)
	assert.Equal(t, "2025-06-30", bn.DueDate.Format("2006-01-02"))

	assert.Equal(t, "02-111", repo.customers[c.ID].Phone)
}

func TestBillingNoteCodeRules(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	a, err := svc.CreateBillingNote(ctx, BillingNoteRequest{Code: str("BN-0010")})
	require.NoError(t, err)
	b, err := svc.CreateBillingNote(ctx, BillingNoteRequest{})
	require.NoError(t, err)
	assert.Equal(t, "0011", b.Code)

	_, err = svc.CreateBillingNote(ctx, BillingNoteRequest{Code: str("BN-0010")})
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	_, err = svc.UpdateBillingNote(ctx, b.ID, BillingNoteRequest{Code: str(a.Code)})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
	assert.Contains(t, err.Error(), "Billing Note code must be unique")

	updated, err := svc.UpdateBillingNote(ctx, b.ID, BillingNoteRequest{Remark: str(" paid by cheque ")})
	require.NoError(t, err)
	assert.Equal(t, "0011", updated.Code)
	assert.Equal(t, "paid by cheque", updated.Remark)
}

func TestBillingNoteRejectsBadDate(t *testing.T) {
	svc := newTestService(newMockRepository())
	_, err := svc.CreateBillingNote(context.Background(), BillingNoteRequest{DueDate: str("30/06/2025")})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestTaxInvoiceCodes(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	preview, err := svc.NextTaxInvoiceCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV 2025-0001", preview)

	first, err := svc.CreateTaxInvoice(ctx, TaxInvoiceRequest{})
	require.NoError(t, err)
	assert.Equal(t, "INV 2025-0001", first.Code)

	custom, err := svc.CreateTaxInvoice(ctx, TaxInvoiceRequest{Code: str("TI-7")})
	require.NoError(t, err)
	assert.Equal(t, "TI-7", custom.Code)

	replaced, err := svc.CreateTaxInvoice(ctx, TaxInvoiceRequest{Code: str("INV 2025-0001")})
	require.NoError(t, err)
	assert.Equal(t, "INV 2025-0008", replaced.Code, "a taken code is replaced by an allocated one")

	_, err = svc.UpdateTaxInvoice(ctx, custom.ID, TaxInvoiceRequest{Code: str(first.Code)})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
	assert.Contains(t, err.Error(), "Tax Invoice code must be unique")
}

func TestTaxInvoiceResolvesPartiesAndLines(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	ctx := context.Background()
	repo.addCustomer(crm.Customer{CompanyName: "Acme Co", TaxID: "0105", Address: "1 Main Rd", Branch: "HQ"})

	req := decode[TaxInvoiceRequest](t, `{
		"customer_name": "Acme Co",
		"eit_name": "Odyssey Ltd",
		"payment_type": " transfer ",
		"items": [{"description": "D1", "qty": 1, "price": "500", "unit": "set"}, {"description": "D2", "qty": 2, "price": 1000, "unit": "box"}]
	}`)
	ti, err := svc.CreateTaxInvoice(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "Acme Co", ti.CustomerName)
	assert.Equal(t, "0105", ti.CustomerTaxID)
	assert.Equal(t, "HQ", ti.CustomerBranch)
	assert.Equal(t, "transfer", ti.PaymentType)
	require.NotNil(t, ti.EITID)
	require.Len(t, ti.Items, 2)
	assert.True(t, decimal.NewFromInt(2).Equal(ti.Items[1].Qty))
	assert.Equal(t, "2025-06-02", ti.IssuedDate.Format("2006-01-02"))

	_, err = svc.CreateTaxInvoice(ctx, TaxInvoiceRequest{CustomerID: new(int64)})
	require.ErrorIs(t, err, httpx.ErrValidation)
}
