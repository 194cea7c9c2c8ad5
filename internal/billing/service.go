package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/docseq"
	"github.com/odyssey-erp/odyssey-crm/internal/observability"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

const (
	metricBillingNote = "billing_note"
	metricTaxInvoice  = "tax_invoice"
)

// Option customises a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records document counters on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAllocator replaces the default code allocator.
func WithAllocator(a *docseq.Allocator) Option {
	return func(s *Service) { s.alloc = a }
}

// Service implements invoices, receipts, purchase orders, billing notes and
// tax invoices.
type Service struct {
	repo    Repository
	logger  *slog.Logger
	alloc   *docseq.Allocator
	metrics *observability.Metrics
	now     func() time.Time
}

// NewService wires the service.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.alloc == nil {
		s.alloc = docseq.New(docseq.WithRetryObserver(s.metrics.SequenceRetry))
	}
	return s
}

func (s *Service) ListDocuments(ctx context.Context, k Kind, filter ListFilter) ([]Document, error) {
	return s.repo.ListDocuments(ctx, k, filter)
}

func (s *Service) GetDocument(ctx context.Context, k Kind, id int64) (*Document, error) {
	return s.repo.GetDocument(ctx, k, id)
}

func (s *Service) DeleteDocument(ctx context.Context, k Kind, id int64) error {
	return s.repo.DeleteDocument(ctx, k, id)
}

// CreateDocument stores an invoice, receipt or purchase order. A blank number
// is allocated; an explicit one must be unused.
func (s *Service) CreateDocument(ctx context.Context, k Kind, req DocumentRequest) (*Document, error) {
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		d := Document{Customer: json.RawMessage(`{}`), Items: json.RawMessage(`[]`), Details: json.RawMessage(`{}`), Totals: json.RawMessage(`{}`)}
		if k.Extra {
			d.ExtraFields = json.RawMessage(`{}`)
		}
		if err := applyDocument(ctx, repo, k, &d, req); err != nil {
			return err
		}
		var err error
		if d.Number, err = s.claim(ctx, repo, k.Series(), "number", trimmed(req.Number), 0, k.Label+" number must be unique"); err != nil {
			return err
		}
		if id, err = repo.CreateDocument(ctx, k, d); err != nil {
			return fmt.Errorf("create %s: %w", k.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DocumentCreated(k.Name)
	return s.repo.GetDocument(ctx, k, id)
}

// UpdateDocument keeps the number unless a different one is given, which must
// then be unused by other documents of the kind.
func (s *Service) UpdateDocument(ctx context.Context, k Kind, id int64, req DocumentRequest) (*Document, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		d, err := repo.GetDocument(ctx, k, id)
		if err != nil {
			return err
		}
		if err := applyDocument(ctx, repo, k, d, req); err != nil {
			return err
		}
		if d.Number, err = s.rename(ctx, repo, k.Series(), "number", d.Number, trimmed(req.Number), id, k.Label+" number must be unique"); err != nil {
			return err
		}
		return repo.UpdateDocument(ctx, k, *d)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetDocument(ctx, k, id)
}

func applyDocument(ctx context.Context, repo Repository, k Kind, d *Document, req DocumentRequest) error {
	var err error
	if req.EITID != nil || strings.TrimSpace(req.EITName) != "" {
		eit, err := resolveEIT(ctx, repo, req.EITID, req.EITName)
		if err != nil {
			return err
		}
		d.EITID = &eit.ID
	}
	if req.CustomerID != nil || present(req.Customer) {
		if d.Customer, err = customerBlock(ctx, repo, req.CustomerID, req.Customer); err != nil {
			return err
		}
	}
	if present(req.Items) {
		if d.Items, err = jsonValue("items", req.Items, '[', `[]`); err != nil {
			return err
		}
	}
	if present(req.Details) {
		if d.Details, err = jsonValue("details", req.Details, '{', `{}`); err != nil {
			return err
		}
	}
	if present(req.Totals) {
		if d.Totals, err = jsonValue("totals", req.Totals, '{', `{}`); err != nil {
			return err
		}
	}
	if k.Extra && present(req.ExtraFields) {
		if d.ExtraFields, err = jsonValue("extra_fields", req.ExtraFields, '{', `{}`); err != nil {
			return err
		}
	}
	return nil
}

// customerBlock snapshots the linked customer and lays the submitted keys over
// it. Without customer_id the submitted object is stored as is.
func customerBlock(ctx context.Context, repo Repository, customerID *int64, raw json.RawMessage) (json.RawMessage, error) {
	raw, err := jsonValue("customer", raw, '{', `{}`)
	if err != nil {
		return nil, err
	}
	if customerID == nil {
		return raw, nil
	}
	c, err := repo.GetCustomer(ctx, *customerID)
	if errors.Is(err, httpx.ErrNotFound) {
		return nil, httpx.FieldError("customer_id", "customer not found")
	}
	if err != nil {
		return nil, err
	}
	party := crm.BuildSnapshot(c, nil).PartyJSON()
	var submitted map[string]any
	if err := json.Unmarshal(raw, &submitted); err != nil {
		return nil, httpx.FieldError("customer", "must be a JSON object")
	}
	for key, v := range submitted {
		party[key] = v
	}
	party["id"] = c.ID
	return json.Marshal(party)
}

func (s *Service) ListBillingNotes(ctx context.Context, filter ListFilter) ([]BillingNote, error) {
	return s.repo.ListBillingNotes(ctx, filter)
}

func (s *Service) GetBillingNote(ctx context.Context, id int64) (*BillingNote, error) {
	return s.repo.GetBillingNote(ctx, id)
}

func (s *Service) DeleteBillingNote(ctx context.Context, id int64) error {
	return s.repo.DeleteBillingNote(ctx, id)
}

// CreateBillingNote stores a billing note. The customer is linked by id or
// resolved by name and its contact data copied into the cus_* snapshot;
// submitted cus_* values win over the customer's.
func (s *Service) CreateBillingNote(ctx context.Context, req BillingNoteRequest) (*BillingNote, error) {
	now := s.now()
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		bn := BillingNote{CreatedDate: dateOf(now), Items: json.RawMessage(`[]`)}
		if err := s.applyBillingNote(ctx, repo, &bn, req); err != nil {
			return err
		}
		var err error
		if bn.Code, err = s.claim(ctx, repo, docseq.BillingNoteSeries(), "bn_code", trimmed(req.Code), 0, "Billing Note code must be unique"); err != nil {
			return err
		}
		if id, err = repo.CreateBillingNote(ctx, bn); err != nil {
			return fmt.Errorf("create billing note: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DocumentCreated(metricBillingNote)
	return s.repo.GetBillingNote(ctx, id)
}

func (s *Service) UpdateBillingNote(ctx context.Context, id int64, req BillingNoteRequest) (*BillingNote, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		bn, err := repo.GetBillingNote(ctx, id)
		if err != nil {
			return err
		}
		if err := s.applyBillingNote(ctx, repo, bn, req); err != nil {
			return err
		}
		if bn.Code, err = s.rename(ctx, repo, docseq.BillingNoteSeries(), "bn_code", bn.Code, trimmed(req.Code), id, "Billing Note code must be unique"); err != nil {
			return err
		}
		return repo.UpdateBillingNote(ctx, *bn)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetBillingNote(ctx, id)
}

func (s *Service) applyBillingNote(ctx context.Context, repo Repository, bn *BillingNote, req BillingNoteRequest) error {
	if req.CustomerID != nil || strings.TrimSpace(req.CustomerName) != "" {
		c, err := resolveCustomer(ctx, repo, req.CustomerID, req.CustomerName)
		if err != nil {
			return err
		}
		bn.CustomerID = &c.ID
		bn.Party = Party{
			Name:     c.CompanyName,
			Address:  c.Address,
			Phone:    c.Phone,
			Fax:      c.Fax,
			Attn:     c.Attn,
			Division: c.AttnDivision,
			Mobile:   c.AttnMobile,
		}
	}
	req.PartyInput.apply(&bn.Party)
	if req.EITID != nil || strings.TrimSpace(req.EITName) != "" {
		eit, err := resolveEIT(ctx, repo, req.EITID, req.EITName)
		if err != nil {
			return err
		}
		bn.EITID = &eit.ID
	}
	if req.CreatedDate != nil {
		d, err := date("bn_created_date", req.CreatedDate)
		if err != nil {
			return err
		}
		if d != nil {
			bn.CreatedDate = *d
		}
	}
	if req.DueDate != nil {
		d, err := date("bn_due_date", req.DueDate)
		if err != nil {
			return err
		}
		bn.DueDate = d
	}
	bn.Amount = req.Amount.Or(bn.Amount).Round(2)
	bn.OutstandingBalance = req.OutstandingBalance.Or(bn.OutstandingBalance).Round(2)
	bn.Total = req.Total.Or(bn.Total).Round(2)
	if req.Remark != nil {
		bn.Remark = strings.TrimSpace(*req.Remark)
	}
	if req.Recipient != nil {
		bn.Recipient = strings.TrimSpace(*req.Recipient)
	}
	if req.Branch != nil {
		bn.Branch = strings.TrimSpace(*req.Branch)
	}
	if present(req.Items) {
		items, err := jsonValue("items", req.Items, '[', `[]`)
		if err != nil {
			return err
		}
		bn.Items = items
	}
	return nil
}

func (s *Service) ListTaxInvoices(ctx context.Context, filter ListFilter) ([]TaxInvoice, error) {
	return s.repo.ListTaxInvoices(ctx, filter)
}

func (s *Service) GetTaxInvoice(ctx context.Context, id int64) (*TaxInvoice, error) {
	return s.repo.GetTaxInvoice(ctx, id)
}

func (s *Service) DeleteTaxInvoice(ctx context.Context, id int64) error {
	return s.repo.DeleteTaxInvoice(ctx, id)
}

// NextTaxInvoiceCode previews the code the next tax invoice would receive.
func (s *Service) NextTaxInvoiceCode(ctx context.Context) (string, error) {
	return s.alloc.Preview(ctx, s.repo.Sequences(), docseq.TaxInvoiceSeries(s.now()))
}

// CreateTaxInvoice stores a tax invoice. An explicit code that is already in
// use is replaced by an allocated one instead of failing.
func (s *Service) CreateTaxInvoice(ctx context.Context, req TaxInvoiceRequest) (*TaxInvoice, error) {
	now := s.now()
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		ti := TaxInvoice{IssuedDate: dateOf(now), Items: []TaxLine{}}
		if err := applyTaxInvoice(ctx, repo, &ti, req); err != nil {
			return err
		}
		series := docseq.TaxInvoiceSeries(now)
		code := trimmed(req.Code)
		if code != "" {
			taken, err := repo.CodeTaken(ctx, series, code, 0)
			if err != nil {
				return err
			}
			if taken {
				s.logger.Info("tax invoice code taken, allocating", slog.String("requested", code))
				code = ""
			}
		}
		if code == "" {
			var err error
			if code, err = s.alloc.Allocate(ctx, repo.Sequences(), series); err != nil {
				return fmt.Errorf("allocate tax invoice code: %w", err)
			}
		}
		ti.Code = code
		var err error
		if id, err = repo.CreateTaxInvoice(ctx, ti); err != nil {
			return fmt.Errorf("create tax invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DocumentCreated(metricTaxInvoice)
	return s.repo.GetTaxInvoice(ctx, id)
}

func (s *Service) UpdateTaxInvoice(ctx context.Context, id int64, req TaxInvoiceRequest) (*TaxInvoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		ti, err := repo.GetTaxInvoice(ctx, id)
		if err != nil {
			return err
		}
		if err := applyTaxInvoice(ctx, repo, ti, req); err != nil {
			return err
		}
		if ti.Code, err = s.rename(ctx, repo, docseq.TaxInvoiceSeries(s.now()), "tax_invoice_code", ti.Code, trimmed(req.Code), id, "Tax Invoice code must be unique"); err != nil {
			return err
		}
		return repo.UpdateTaxInvoice(ctx, *ti)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetTaxInvoice(ctx, id)
}

func applyTaxInvoice(ctx context.Context, repo Repository, ti *TaxInvoice, req TaxInvoiceRequest) error {
	if req.CustomerID != nil || strings.TrimSpace(req.CustomerName) != "" {
		c, err := resolveCustomer(ctx, repo, req.CustomerID, req.CustomerName)
		if err != nil {
			return err
		}
		ti.CustomerID = &c.ID
		ti.CustomerName = c.CompanyName
		ti.CustomerAddress = c.Address
		ti.CustomerTaxID = c.TaxID
		ti.CustomerPhone = c.Phone
		if ti.CustomerBranch == "" {
			ti.CustomerBranch = c.Branch
		}
	}
	if req.EITID != nil || strings.TrimSpace(req.EITName) != "" {
		eit, err := resolveEIT(ctx, repo, req.EITID, req.EITName)
		if err != nil {
			return err
		}
		ti.EITID = &eit.ID
	}
	if req.IssuedDate != nil {
		d, err := date("issued_date", req.IssuedDate)
		if err != nil {
			return err
		}
		if d != nil {
			ti.IssuedDate = *d
		}
	}
	if req.DueDate != nil {
		d, err := date("due_date", req.DueDate)
		if err != nil {
			return err
		}
		ti.DueDate = d
	}
	if req.CustomerBranch != nil {
		ti.CustomerBranch = strings.TrimSpace(*req.CustomerBranch)
	}
	if req.PaymentType != nil {
		ti.PaymentType = strings.TrimSpace(*req.PaymentType)
	}
	if req.Items != nil {
		ti.Items = make([]TaxLine, 0, len(req.Items))
		for _, in := range req.Items {
			ti.Items = append(ti.Items, in.line())
		}
	}
	return nil
}

// claim returns requested when it is unused, or a freshly allocated code when
// requested is blank.
func (s *Service) claim(ctx context.Context, repo Repository, series docseq.Series, field, requested string, excludeID int64, msg string) (string, error) {
	if requested == "" {
		code, err := s.alloc.Allocate(ctx, repo.Sequences(), series)
		if err != nil {
			return "", fmt.Errorf("allocate %s: %w", series.Key, err)
		}
		return code, nil
	}
	taken, err := repo.CodeTaken(ctx, series, requested, excludeID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", httpx.DuplicateField(field, msg)
	}
	return requested, nil
}

// rename keeps current unless requested is a different non-blank code.
func (s *Service) rename(ctx context.Context, repo Repository, series docseq.Series, field, current, requested string, id int64, msg string) (string, error) {
	if requested == "" || requested == current {
		return current, nil
	}
	return s.claim(ctx, repo, series, field, requested, id, msg)
}

func resolveCustomer(ctx context.Context, repo Repository, id *int64, name string) (*crm.Customer, error) {
	if id != nil {
		c, err := repo.GetCustomer(ctx, *id)
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.FieldError("customer_id", "customer not found")
		}
		return c, err
	}
	return repo.EnsureCustomer(ctx, name)
}

func resolveEIT(ctx context.Context, repo Repository, id *int64, name string) (*crm.EIT, error) {
	if id != nil {
		e, err := repo.GetEIT(ctx, *id)
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.FieldError("eit_id", "organization not found")
		}
		return e, err
	}
	return repo.EnsureEIT(ctx, name)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
