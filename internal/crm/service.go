package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-crm/internal/notifications"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

// Service implements customer, issuer, deal and activity use cases.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) ListCustomers(ctx context.Context, filter CustomerFilter) ([]Customer, error) {
	return s.repo.ListCustomers(ctx, filter)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// CreateCustomer stores a new customer. Missing cc lists are derived from
// extra_contacts.
func (s *Service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	var c Customer
	if err := req.CustomerInput.apply(&c); err != nil {
		return nil, err
	}
	c.CompanyName = strings.TrimSpace(req.CompanyName)
	if c.CompanyName == "" {
		return nil, httpx.FieldError("company_name", "is required")
	}
	id, err := s.repo.CreateCustomer(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return s.repo.GetCustomer(ctx, id)
}

// UpdateCustomer applies req and pushes the primary contact and company
// fields into every deal of the customer, in one transaction.
func (s *Service) UpdateCustomer(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	var updated *Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		c, err := repo.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		if err := req.CustomerInput.apply(c); err != nil {
			return err
		}
		if c.CompanyName == "" {
			return httpx.FieldError("company_name", "is required")
		}
		if err := repo.UpdateCustomer(ctx, *c); err != nil {
			return err
		}
		deals, err := repo.ListDealsByCustomer(ctx, c.ID)
		if err != nil {
			return err
		}
		for i := range deals {
			if !ApplyCustomerToDeal(&deals[i], *c) {
				continue
			}
			if err := repo.UpdateDeal(ctx, deals[i]); err != nil {
				return fmt.Errorf("sync deal %d: %w", deals[i].ID, err)
			}
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return updated, nil
}

// DeleteCustomer removes a customer. Its deals stay and lose the link.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		n, err := repo.DetachDeals(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.DeleteCustomer(ctx, id); err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info("customer deleted, deals detached", slog.Int64("customer_id", id), slog.Int64("deals", n))
		}
		return nil
	})
}

func (s *Service) ListEITs(ctx context.Context) ([]EIT, error) {
	return s.repo.ListEITs(ctx)
}

func (s *Service) GetEIT(ctx context.Context, id int64) (*EIT, error) {
	return s.repo.GetEIT(ctx, id)
}

func (s *Service) CreateEIT(ctx context.Context, req EITRequest) (*EIT, error) {
	e := eitFromRequest(req)
	id, err := s.repo.CreateEIT(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("create eit: %w", err)
	}
	return s.repo.GetEIT(ctx, id)
}

func (s *Service) UpdateEIT(ctx context.Context, id int64, req EITRequest) (*EIT, error) {
	e := eitFromRequest(req)
	e.ID = id
	if err := s.repo.UpdateEIT(ctx, e); err != nil {
		return nil, fmt.Errorf("update eit: %w", err)
	}
	return s.repo.GetEIT(ctx, id)
}

func (s *Service) DeleteEIT(ctx context.Context, id int64) error {
	return s.repo.DeleteEIT(ctx, id)
}

func eitFromRequest(req EITRequest) EIT {
	e := EIT{
		OrganizationName: strings.TrimSpace(req.OrganizationName),
		TaxNumber:        strings.TrimSpace(req.TaxNumber),
		Address:          strings.TrimSpace(req.Address),
		Mobile:           strings.TrimSpace(req.Mobile),
		Telephone:        strings.TrimSpace(req.Telephone),
		Fax:              strings.TrimSpace(req.Fax),
		HeaderImage:      strings.TrimSpace(req.HeaderImage),
	}
	if req.OrganizationID != nil {
		if v := strings.TrimSpace(*req.OrganizationID); v != "" {
			e.OrganizationID = &v
		}
	}
	return e
}

func (s *Service) ListDeals(ctx context.Context, filter DealFilter) ([]Deal, error) {
	return s.repo.ListDeals(ctx, filter)
}

func (s *Service) GetDeal(ctx context.Context, id int64) (*Deal, error) {
	return s.repo.GetDeal(ctx, id)
}

func (s *Service) DealHistory(ctx context.Context, dealID int64) ([]DealHistory, error) {
	if _, err := s.repo.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}
	return s.repo.ListDealHistory(ctx, dealID)
}

// CreateDeal stores a deal with defaults applied. The customer comes from
// customer_id, or is looked up or created by customer_name.
func (s *Service) CreateDeal(ctx context.Context, req DealRequest) (*Deal, error) {
	if err := CheckExtraContacts(req.ExtraContacts); err != nil {
		return nil, err
	}
	d := Deal{Stage: DefaultDealStage, Priority: DefaultDealPriority}
	req.apply(&d)
	if d.Title == "" {
		d.Title = DefaultDealTitle
	}
	if d.Currency == "" {
		d.Currency = DefaultDealCurrency
	}
	if d.Stage == "" {
		d.Stage = DefaultDealStage
	}
	if d.Priority == "" {
		d.Priority = DefaultDealPriority
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		customer, err := s.resolveCustomer(ctx, repo, req.CustomerID, deref(req.CustomerName))
		if err != nil {
			return err
		}
		if customer != nil {
			d.CustomerID = &customer.ID
			if req.Branch != nil {
				customer.Branch = strings.TrimSpace(*req.Branch)
				if err := repo.UpdateCustomer(ctx, *customer); err != nil {
					return err
				}
			}
		}
		id, err = repo.CreateDeal(ctx, d)
		if err != nil {
			return err
		}
		return repo.Notify(ctx, notifications.KindCRMCreated, notifications.DealCreatedMessage(d.Title))
	})
	if err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}
	return s.repo.GetDeal(ctx, id)
}

// UpdateDeal applies req, syncs the linked customer and records a stage move.
func (s *Service) UpdateDeal(ctx context.Context, id int64, req DealRequest) (*Deal, error) {
	if err := CheckExtraContacts(req.ExtraContacts); err != nil {
		return nil, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		d, err := repo.GetDeal(ctx, id)
		if err != nil {
			return err
		}
		oldStage := d.Stage
		req.apply(d)
		if d.Stage == "" {
			d.Stage = oldStage
		}

		var customer *Customer
		if req.CustomerID != nil || req.CustomerName != nil {
			customer, err = s.resolveCustomer(ctx, repo, req.CustomerID, deref(req.CustomerName))
			if err != nil {
				return err
			}
			d.CustomerID = nil
			if customer != nil {
				d.CustomerID = &customer.ID
			}
		} else if d.CustomerID != nil {
			customer, err = repo.GetCustomer(ctx, *d.CustomerID)
			if err != nil {
				return err
			}
		}
		if err := repo.UpdateDeal(ctx, *d); err != nil {
			return err
		}

		if customer != nil {
			if req.Branch != nil {
				customer.Branch = strings.TrimSpace(*req.Branch)
			}
			if err := ApplyDealToCustomer(customer, req.contactUpdate(), d.ExtraContacts); err != nil {
				return err
			}
			if err := repo.UpdateCustomer(ctx, *customer); err != nil {
				return fmt.Errorf("sync customer %d: %w", customer.ID, err)
			}
		}

		if d.Stage != oldStage {
			if err := repo.InsertDealHistory(ctx, DealHistory{DealID: d.ID, FromStage: oldStage, ToStage: d.Stage}); err != nil {
				return err
			}
			name := ""
			if customer != nil {
				name = customer.CompanyName
			}
			if err := repo.Notify(ctx, notifications.KindCRMMove, notifications.DealMovedMessage(name, oldStage, d.Stage)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update deal: %w", err)
	}
	return s.repo.GetDeal(ctx, id)
}

// DeleteDeal removes a deal. The customer is kept.
func (s *Service) DeleteDeal(ctx context.Context, id int64) error {
	return s.repo.DeleteDeal(ctx, id)
}

func (s *Service) resolveCustomer(ctx context.Context, dir Directory, id *int64, name string) (*Customer, error) {
	if id != nil && *id > 0 {
		c, err := dir.GetCustomer(ctx, *id)
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.FieldError("customer_id", "customer does not exist")
		}
		return c, err
	}
	return dir.EnsureCustomer(ctx, name)
}

func (s *Service) ListActivities(ctx context.Context, filter ActivityFilter) ([]ActivitySchedule, error) {
	return s.repo.ListActivities(ctx, filter)
}

// CreateActivity schedules a follow-up. The customer label defaults to the
// deal's customer.
func (s *Service) CreateActivity(ctx context.Context, req ActivityRequest) (*ActivitySchedule, error) {
	if req.StartAt != nil && req.StartAt.After(req.DueAt) {
		return nil, httpx.FieldError("start_at", "must not be after due_at")
	}
	a := ActivitySchedule{
		DealID:       req.DealID,
		Customer:     strings.TrimSpace(req.Customer),
		ActivityName: strings.TrimSpace(req.ActivityName),
		Salesperson:  strings.TrimSpace(req.Salesperson),
		StartAt:      req.StartAt,
		DueAt:        req.DueAt.UTC(),
	}
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if a.DealID != nil {
			d, err := repo.GetDeal(ctx, *a.DealID)
			if errors.Is(err, httpx.ErrNotFound) {
				return httpx.FieldError("deal_id", "deal does not exist")
			}
			if err != nil {
				return err
			}
			if a.Customer == "" {
				a.Customer = d.CustomerName
			}
		}
		var err error
		id, err = repo.CreateActivity(ctx, a)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	return s.repo.GetActivity(ctx, id)
}

func (s *Service) CompleteActivity(ctx context.Context, id int64) error {
	return s.repo.CompleteActivity(ctx, id)
}

// exportRows returns every deal for the pipeline export.
func (s *Service) exportRows(ctx context.Context) ([]Deal, error) {
	var out []Deal
	const page = 500
	for offset := 0; ; offset += page {
		batch, err := s.repo.ListDeals(ctx, DealFilter{Limit: page, Offset: offset})
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < page {
			return out, nil
		}
	}
}
