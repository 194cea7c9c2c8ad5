package billing

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/docseq"
)

type mockRepository struct {
	mu        sync.Mutex
	nextID    int64
	documents map[string]map[int64]Document
	notes     map[int64]BillingNote
	taxes     map[int64]TaxInvoice
	customers map[int64]crm.Customer
	eits      map[int64]crm.EIT
	seq       *docseq.MemoryStore
}

func newMockRepository() *mockRepository {
	m := &mockRepository{
		documents: map[string]map[int64]Document{},
		notes:     map[int64]BillingNote{},
		taxes:     map[int64]TaxInvoice{},
		customers: map[int64]crm.Customer{},
		eits:      map[int64]crm.EIT{},
	}
	m.seq = docseq.NewMemoryStore(func(s docseq.Series) []string {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.codesLocked(s.Table)
	})
	return m
}

func (m *mockRepository) codesLocked(table string) []string {
	var codes []string
	switch table {
	case "billing_notes":
		for _, bn := range m.notes {
			codes = append(codes, bn.Code)
		}
	case "tax_invoices":
		for _, ti := range m.taxes {
			codes = append(codes, ti.Code)
		}
	default:
		for _, d := range m.documents[table] {
			codes = append(codes, d.Number)
		}
	}
	return codes
}

func (m *mockRepository) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) Sequences() docseq.Store { return m.seq }

func (m *mockRepository) CodeTaken(ctx context.Context, s docseq.Series, code string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch s.Table {
	case "billing_notes":
		for id, bn := range m.notes {
			if bn.Code == code && id != excludeID {
				return true, nil
			}
		}
	case "tax_invoices":
		for id, ti := range m.taxes {
			if ti.Code == code && id != excludeID {
				return true, nil
			}
		}
	default:
		for id, d := range m.documents[s.Table] {
			if d.Number == code && id != excludeID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *mockRepository) GetCustomer(ctx context.Context, id int64) (*crm.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, crm.ErrCustomerNotFound
	}
	return &c, nil
}

func (m *mockRepository) GetEIT(ctx context.Context, id int64) (*crm.EIT, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.eits[id]
	if !ok {
		return nil, crm.ErrEITNotFound
	}
	return &e, nil
}

func (m *mockRepository) EnsureCustomer(ctx context.Context, name string) (*crm.Customer, error) {
	name = strings.TrimSpace(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.CompanyName == name {
			return &c, nil
		}
	}
	c := crm.Customer{ID: m.id(), CompanyName: name}
	m.customers[c.ID] = c
	return &c, nil
}

func (m *mockRepository) EnsureEIT(ctx context.Context, name string) (*crm.EIT, error) {
	name = strings.TrimSpace(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.eits {
		if e.OrganizationName == name {
			return &e, nil
		}
	}
	e := crm.EIT{ID: m.id(), OrganizationName: name}
	m.eits[e.ID] = e
	return &e, nil
}

func (m *mockRepository) addCustomer(c crm.Customer) crm.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	m.customers[c.ID] = c
	return c
}

func (m *mockRepository) ListDocuments(ctx context.Context, k Kind, filter ListFilter) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Document
	for _, d := range m.documents[k.Table] {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockRepository) GetDocument(ctx context.Context, k Kind, id int64) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[k.Table][id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &d, nil
}

func (m *mockRepository) CreateDocument(ctx context.Context, k Kind, d Document) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.documents[k.Table] == nil {
		m.documents[k.Table] = map[int64]Document{}
	}
	d.ID = m.id()
	m.documents[k.Table][d.ID] = d
	return d.ID, nil
}

func (m *mockRepository) UpdateDocument(ctx context.Context, k Kind, d Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[k.Table][d.ID]; !ok {
		return ErrDocumentNotFound
	}
	m.documents[k.Table][d.ID] = d
	return nil
}

func (m *mockRepository) DeleteDocument(ctx context.Context, k Kind, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[k.Table][id]; !ok {
		return ErrDocumentNotFound
	}
	delete(m.documents[k.Table], id)
	return nil
}

func (m *mockRepository) ListBillingNotes(ctx context.Context, filter ListFilter) ([]BillingNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []BillingNote
	for _, bn := range m.notes {
		out = append(out, bn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockRepository) GetBillingNote(ctx context.Context, id int64) (*BillingNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bn, ok := m.notes[id]
	if !ok {
		return nil, ErrBillingNoteNotFound
	}
	return &bn, nil
}

func (m *mockRepository) CreateBillingNote(ctx context.Context, bn BillingNote) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bn.ID = m.id()
	m.notes[bn.ID] = bn
	return bn.ID, nil
}

func (m *mockRepository) UpdateBillingNote(ctx context.Context, bn BillingNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[bn.ID]; !ok {
		return ErrBillingNoteNotFound
	}
	m.notes[bn.ID] = bn
	return nil
}

func (m *mockRepository) DeleteBillingNote(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return ErrBillingNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *mockRepository) ListTaxInvoices(ctx context.Context, filter ListFilter) ([]TaxInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TaxInvoice
	for _, ti := range m.taxes {
		out = append(out, ti)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockRepository) GetTaxInvoice(ctx context.Context, id int64) (*TaxInvoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ti, ok := m.taxes[id]
	if !ok {
		return nil, ErrTaxInvoiceNotFound
	}
	return &ti, nil
}

func (m *mockRepository) CreateTaxInvoice(ctx context.Context, ti TaxInvoice) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ti.ID = m.id()
	m.taxes[ti.ID] = ti
	return ti.ID, nil
}

func (m *mockRepository) UpdateTaxInvoice(ctx context.Context, ti TaxInvoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.taxes[ti.ID]; !ok {
		return ErrTaxInvoiceNotFound
	}
	m.taxes[ti.ID] = ti
	return nil
}

func (m *mockRepository) DeleteTaxInvoice(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.taxes[id]; !ok {
		return ErrTaxInvoiceNotFound
	}
	delete(m.taxes, id)
	return nil
}
