package quotations

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/docseq"
)

type mockRepository struct {
	mu         sync.Mutex
	nextID     int64
	quotations map[int64]Quotation
	items      map[int64]Item
	customers  map[int64]crm.Customer
	eits       map[int64]crm.EIT
	seq        *docseq.MemoryStore
	createErr  error
}

func newMockRepository() *mockRepository {
	m := &mockRepository{
		quotations: map[int64]Quotation{},
		items:      map[int64]Item{},
		customers:  map[int64]crm.Customer{},
		eits:       map[int64]crm.EIT{},
	}
	m.seq = docseq.NewMemoryStore(func(docseq.Series) []string {
		m.mu.Lock()
		defer m.mu.Unlock()
		codes := make([]string, 0, len(m.quotations))
		for _, q := range m.quotations {
			codes = append(codes, q.QOCode)
		}
		return codes
	})
	return m
}

func (m *mockRepository) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) Sequences() docseq.Store { return m.seq }

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
	if name == "" {
		return nil, nil
	}
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
	if name == "" {
		return nil, nil
	}
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

func (m *mockRepository) List(ctx context.Context, filter ListFilter) ([]Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quotation
	for _, q := range m.quotations {
		if filter.CustomerID != nil && (q.CustomerID == nil || *q.CustomerID != *filter.CustomerID) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Quotation, error) {
	m.mu.Lock()
	q, ok := m.quotations[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	items, _ := m.Items(ctx, id)
	q.Items = items
	return &q, nil
}

func (m *mockRepository) Items(ctx context.Context, quotationID int64) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Item
	for _, it := range m.items {
		if it.QuotationID == quotationID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepository) FileNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.quotations {
		if q.FileName == name && q.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) Create(ctx context.Context, q Quotation) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = m.id()
	q.Items = nil
	m.quotations[q.ID] = q
	return q.ID, nil
}

func (m *mockRepository) Update(ctx context.Context, q Quotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotations[q.ID]; !ok {
		return ErrNotFound
	}
	q.Items = nil
	m.quotations[q.ID] = q
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotations[id]; !ok {
		return ErrNotFound
	}
	delete(m.quotations, id)
	for itemID, it := range m.items {
		if it.QuotationID == id {
			delete(m.items, itemID)
		}
	}
	return nil
}

func (m *mockRepository) InsertItem(ctx context.Context, it Item) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it.ID = m.id()
	m.items[it.ID] = it
	return it.ID, nil
}

func (m *mockRepository) UpdateItem(ctx context.Context, it Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it
	return nil
}

func codes(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Code
	}
	return out
}
