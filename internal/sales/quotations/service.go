package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/docseq"
	"github.com/odyssey-erp/odyssey-crm/internal/itemcode"
	"github.com/odyssey-erp/odyssey-crm/internal/observability"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/filestore"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/shared"
)

const (
	metricKind       = "quotation"
	imageCopyWorkers = 4
	fileNameTakenMsg = "File name must be unique"
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

// WithImageMaxWidth bounds the width of uploaded item images.
func WithImageMaxWidth(px int) Option {
	return func(s *Service) { s.imageMaxWidth = px }
}

// Service implements the quotation use cases.
type Service struct {
	repo          Repository
	store         filestore.Store
	logger        *slog.Logger
	alloc         *docseq.Allocator
	metrics       *observability.Metrics
	now           func() time.Time
	imageMaxWidth int
}

// NewService wires the service.
func NewService(repo Repository, store filestore.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, store: store, logger: logger, now: time.Now, imageMaxWidth: 1600}
	for _, opt := range opts {
		opt(s)
	}
	if s.alloc == nil {
		s.alloc = docseq.New(docseq.WithRetryObserver(s.metrics.SequenceRetry))
	}
	return s
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Quotation, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// NextCode previews the code the next quotation would receive.
func (s *Service) NextCode(ctx context.Context) (string, error) {
	return s.alloc.Preview(ctx, s.repo.Sequences(), docseq.QuotationSeries(s.now()))
}

// Create stores a new quotation. The code is always allocated. Items are
// numbered from the payload, or copied from source_quotation_id when given.
func (s *Service) Create(ctx context.Context, req QuotationRequest) (*Quotation, error) {
	var copied []Item
	var created []string
	if req.SourceQuotationID != nil {
		parent, err := s.repo.Get(ctx, *req.SourceQuotationID)
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.FieldError("source_quotation_id", "quotation not found")
		}
		if err != nil {
			return nil, err
		}
		copied, created = s.copyImages(ctx, parent.Items)
	}

	now := s.now()
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q := Quotation{DocType: DocTypeQuotation, CreatedDate: dateOf(now)}
		if err := applyHeader(&q, req); err != nil {
			return err
		}
		customer, eit, err := resolveParties(ctx, repo, req)
		if err != nil {
			return err
		}
		q.Snapshot = crm.BuildSnapshot(customer, eit).Apply(req.SnapshotOverrides)
		if err := req.DetailsInput.apply(&q.Details); err != nil {
			return err
		}
		if req.FileName != nil {
			q.FileName = strings.TrimSpace(*req.FileName)
		}
		if err := checkFileName(ctx, repo, q.FileName, 0); err != nil {
			return err
		}
		if q.QOCode, err = s.alloc.Allocate(ctx, repo.Sequences(), docseq.QuotationSeries(now)); err != nil {
			return fmt.Errorf("allocate quotation code: %w", err)
		}
		if id, err = repo.Create(ctx, q); err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}

		if req.SourceQuotationID != nil {
			return insertItems(ctx, repo, id, copied)
		}
		placements := itemcode.Create(nil, rows(req.Items))
		items := make([]Item, len(placements))
		for i, p := range placements {
			items[i] = newItem(req.Items[i], p)
			items[i].Image = filestore.CleanKey(req.Items[i].Image)
		}
		return insertItems(ctx, repo, id, items)
	})
	if err != nil {
		s.discardImages(ctx, created)
		return nil, err
	}
	s.metrics.DocumentCreated(metricKind)
	return s.repo.Get(ctx, id)
}

// Update edits a quotation in place. Customer and issuer are re-linked only;
// neither record is modified. Items are matched by row_id, id, then position;
// stored items missing from the payload are kept.
func (s *Service) Update(ctx context.Context, id int64, req QuotationRequest) (*Quotation, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := applyHeader(q, req); err != nil {
			return err
		}
		if req.CustomerID != nil || strings.TrimSpace(req.CustomerName) != "" || req.EITID != nil || strings.TrimSpace(req.EITName) != "" {
			customer, eit, err := resolveParties(ctx, repo, req)
			if err != nil {
				return err
			}
			if customer != nil {
				q.CustomerID, q.CustomerName = &customer.ID, customer.CompanyName
			}
			if eit != nil {
				q.EITID, q.EITName = &eit.ID, eit.OrganizationName
			}
		}
		q.Snapshot = q.Snapshot.Apply(req.SnapshotOverrides)
		if err := req.DetailsInput.apply(&q.Details); err != nil {
			return err
		}
		if req.QOCode != nil {
			if code := strings.TrimSpace(*req.QOCode); code != "" {
				q.QOCode = code
			}
		}
		if req.FileName != nil {
			name := strings.TrimSpace(*req.FileName)
			if name != q.FileName {
				if err := checkFileName(ctx, repo, name, id); err != nil {
					return err
				}
			}
			q.FileName = name
		}
		if err := repo.Update(ctx, *q); err != nil {
			return fmt.Errorf("update quotation: %w", err)
		}
		if len(req.Items) == 0 {
			return nil
		}
		return upsertItems(ctx, repo, id, q.Items, req.Items)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func upsertItems(ctx context.Context, repo Repository, quotationID int64, stored []Item, inputs []ItemInput) error {
	byID := make(map[int64]Item, len(stored))
	existing := make([]itemcode.Existing, len(stored))
	for i, it := range stored {
		byID[it.ID] = it
		existing[i] = itemcode.Existing{ID: it.ID, Code: it.Code}
	}
	for i, p := range itemcode.Update(existing, rows(inputs)) {
		in := inputs[i]
		it := newItem(in, p)
		it.QuotationID = quotationID
		image := filestore.CleanKey(in.Image)
		if p.TargetID == 0 {
			it.Image = image
			if _, err := repo.InsertItem(ctx, it); err != nil {
				return fmt.Errorf("insert quotation item: %w", err)
			}
			continue
		}
		current := byID[p.TargetID]
		it.ID = current.ID
		it.Image = current.Image
		if image != "" && image != current.Image && (in.ImageChanged || current.Image == "") {
			it.Image = image
		}
		if err := repo.UpdateItem(ctx, it); err != nil {
			return fmt.Errorf("update quotation item %d: %w", it.ID, err)
		}
	}
	return nil
}

// Duplicate clones a quotation under a fresh code and file name. Item images
// are copied to new keys before the transaction; a failed copy leaves the item
// without an image.
func (s *Service) Duplicate(ctx context.Context, id int64, req DuplicateRequest) (*Quotation, error) {
	orig, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	items, created := s.copyImages(ctx, orig.Items)
	applyOverrides(items, orig.Items, req.Items)

	now := s.now()
	var newID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q := Quotation{
			FileName:    CopyFileName(orig.FileName),
			DocType:     orig.DocType,
			CreatedDate: dateOf(now),
			Snapshot:    orig.Snapshot,
			Details:     orig.Details,
		}
		if err := req.DetailsInput.apply(&q.Details); err != nil {
			return err
		}
		var err error
		if q.QOCode, err = s.alloc.Allocate(ctx, repo.Sequences(), docseq.QuotationSeries(now)); err != nil {
			return fmt.Errorf("allocate quotation code: %w", err)
		}
		if newID, err = repo.Create(ctx, q); err != nil {
			return fmt.Errorf("create duplicate: %w", err)
		}
		return insertItems(ctx, repo, newID, items)
	})
	if err != nil {
		s.discardImages(ctx, created)
		return nil, err
	}
	s.metrics.DocumentCreated(metricKind)
	s.logger.Info("quotation duplicated", slog.Int64("source_id", id), slog.Int64("quotation_id", newID))
	return s.repo.Get(ctx, newID)
}

// UploadImage normalises an item image and stores it under a fresh key.
func (s *Service) UploadImage(ctx context.Context, name string, data []byte) (string, error) {
	normalized, ext, contentType, err := filestore.NormalizeImage(data, name, s.imageMaxWidth)
	if err != nil {
		return "", httpx.FieldError("image", "must be a JPEG, PNG or GIF image")
	}
	key := filestore.NewImageKey("upload" + ext)
	if err := s.store.Put(ctx, key, normalized, contentType); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return key, nil
}

// copyImages returns detached copies of items with every image duplicated
// under a new key, along with the keys written.
func (s *Service) copyImages(ctx context.Context, src []Item) ([]Item, []string) {
	items := make([]Item, len(src))
	keys := make([]string, len(src))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imageCopyWorkers)
	for i, it := range src {
		items[i] = Item{
			Code:          it.Code,
			Model:         it.Model,
			Description:   it.Description,
			Specification: it.Specification,
			Quantity:      it.Quantity,
			Total:         it.Total,
		}
		ref := filestore.CleanKey(it.Image)
		if ref == "" || s.store == nil {
			continue
		}
		g.Go(func() error {
			key, err := s.copyImage(gctx, ref)
			if err != nil {
				s.metrics.ImageCopyFailed()
				s.logger.Warn("copy item image", slog.String("image", ref), slog.Any("error", err))
				return nil
			}
			items[i].Image = key
			keys[i] = key
			return nil
		})
	}
	_ = g.Wait()

	created := keys[:0]
	for _, k := range keys {
		if k != "" {
			created = append(created, k)
		}
	}
	return items, created
}

func (s *Service) copyImage(ctx context.Context, ref string) (string, error) {
	data, err := s.store.Get(ctx, ref)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("empty image")
	}
	key := filestore.NewImageKey(ref)
	if err := s.store.Put(ctx, key, data, mime.TypeByExtension(path.Ext(key))); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Service) discardImages(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			s.logger.Warn("discard copied image", slog.String("image", k), slog.Any("error", err))
		}
	}
}

// applyOverrides edits copied items in place. An override targets the item
// whose original id equals row_id, otherwise the item at the same position.
func applyOverrides(items, originals []Item, overrides []ItemOverride) {
	index := make(map[int64]int, len(originals))
	for i, it := range originals {
		index[it.ID] = i
	}
	for i, ov := range overrides {
		target, ok := index[ov.RowID]
		if ov.RowID == 0 || !ok {
			target = i
		}
		if target >= len(items) {
			continue
		}
		it := &items[target]
		keep := func(dst *string, v string) {
			if v = strings.TrimSpace(v); v != "" {
				*dst = v
			}
		}
		keep(&it.Code, ov.Item)
		keep(&it.Model, ov.Model)
		keep(&it.Description, ov.Description)
		keep(&it.Specification, ov.Specification)
		if ov.Qty.Set || ov.Price.Set {
			unit := it.UnitPrice()
			it.Quantity = ov.Qty.Or(it.Quantity)
			it.Total = shared.LineTotal(it.Quantity, ov.Price.Or(unit))
		}
	}
}

// CopyFileName derives the file name of a duplicate:
// "<base>_COPY_<8 hex><ext>", with ".pdf" when the source has no extension.
func CopyFileName(source string) string {
	base, ext := defaultFileBase, ""
	if source != "" {
		base = source
		if i := strings.LastIndex(source, "."); i >= 0 {
			base, ext = source[:i], source[i:]
		}
	}
	if ext == "" {
		ext = defaultFileExt
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return base + "_COPY_" + suffix + ext
}

func applyHeader(q *Quotation, req QuotationRequest) error {
	if req.DocType != nil {
		if t := strings.TrimSpace(*req.DocType); t != "" {
			q.DocType = t
		}
	}
	if req.CreatedDate != nil {
		date, err := shared.ParseDate(*req.CreatedDate)
		if err != nil {
			return httpx.FieldError("created_date", "must be YYYY-MM-DD")
		}
		if date != nil {
			q.CreatedDate = *date
		}
	}
	if req.IsArchived != nil {
		q.IsArchived = *req.IsArchived
	}
	return nil
}

func resolveParties(ctx context.Context, dir crm.Directory, req QuotationRequest) (*crm.Customer, *crm.EIT, error) {
	var customer *crm.Customer
	var err error
	if req.CustomerID != nil {
		if customer, err = dir.GetCustomer(ctx, *req.CustomerID); errors.Is(err, httpx.ErrNotFound) {
			return nil, nil, httpx.FieldError("customer_id", "customer not found")
		}
	} else {
		customer, err = dir.EnsureCustomer(ctx, req.CustomerName)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("resolve customer: %w", err)
	}

	var eit *crm.EIT
	if req.EITID != nil {
		if eit, err = dir.GetEIT(ctx, *req.EITID); errors.Is(err, httpx.ErrNotFound) {
			return nil, nil, httpx.FieldError("eit_id", "organization not found")
		}
	} else {
		eit, err = dir.EnsureEIT(ctx, req.EITName)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("resolve eit: %w", err)
	}
	return customer, eit, nil
}

func checkFileName(ctx context.Context, repo Repository, name string, excludeID int64) error {
	if name == "" {
		return nil
	}
	taken, err := repo.FileNameTaken(ctx, name, excludeID)
	if err != nil {
		return fmt.Errorf("check file name: %w", err)
	}
	if taken {
		return httpx.DuplicateField("file_name", fileNameTakenMsg)
	}
	return nil
}

func newItem(in ItemInput, p itemcode.Placement) Item {
	return Item{
		Code:          p.Code,
		Model:         strings.TrimSpace(in.Model),
		Description:   p.Description,
		Specification: p.Specification,
		Quantity:      in.quantity(),
		Total:         in.total(),
	}
}

func insertItems(ctx context.Context, repo Repository, quotationID int64, items []Item) error {
	for _, it := range items {
		it.QuotationID = quotationID
		if _, err := repo.InsertItem(ctx, it); err != nil {
			return fmt.Errorf("insert quotation item %s: %w", it.Code, err)
		}
	}
	return nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
