package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

// DefaultBillingWindowDays is how far ahead billing note due dates are announced.
const DefaultBillingWindowDays = 5

// Service exposes the notification center and the reminder checks.
type Service struct {
	repo        Repository
	logger      *slog.Logger
	location    *time.Location
	billingDays int
	clock       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLocation sets the zone reminder timestamps are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithBillingWindow overrides DefaultBillingWindowDays.
func WithBillingWindow(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.billingDays = days
		}
	}
}

// WithClock injects the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs the service.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:        repo,
		logger:      logger,
		location:    time.UTC,
		billingDays: DefaultBillingWindowDays,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Notification, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, httpx.FieldError("type", "unknown notification type")
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) MarkRead(ctx context.Context, id int64) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context) (int64, error) {
	return s.repo.MarkAllRead(ctx)
}

// Delete removes a notification and remembers its (type, message) pair so the
// reminder checks never recreate it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		n, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.Dismiss(ctx, n.Kind, n.Message); err != nil {
			return fmt.Errorf("dismiss notification: %w", err)
		}
		return repo.Delete(ctx, id)
	})
}

// Clear removes every notification, dismissing each one.
func (s *Service) Clear(ctx context.Context) (int, error) {
	var removed int
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		deleted, err := repo.DeleteAll(ctx)
		if err != nil {
			return err
		}
		for _, n := range deleted {
			if err := repo.Dismiss(ctx, n.Kind, n.Message); err != nil {
				return fmt.Errorf("dismiss notification: %w", err)
			}
		}
		removed = len(deleted)
		return nil
	})
	return removed, err
}

// CheckActivityReminders announces activities due within a day (once per
// activity) and overdue activities (once per message).
func (s *Service) CheckActivityReminders(ctx context.Context) (int, error) {
	now := s.clock()
	created := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		upcoming, err := repo.UpcomingActivities(ctx, now, now.Add(24*time.Hour))
		if err != nil {
			return fmt.Errorf("load upcoming activities: %w", err)
		}
		for _, a := range upcoming {
			msg := ActivityDueMessage(a.Customer, a.ActivityName, a.DueAt.In(s.location))
			ok, err := repo.Emit(ctx, KindActivityReminder, msg, false)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
			if err := repo.MarkActivityReminded(ctx, a.ID); err != nil {
				return err
			}
		}

		overdue, err := repo.OverdueActivities(ctx, now)
		if err != nil {
			return fmt.Errorf("load overdue activities: %w", err)
		}
		for _, a := range overdue {
			ok, err := repo.Emit(ctx, KindActivityReminder, ActivityMissedMessage(a.Customer, a.ActivityName), true)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	return created, err
}

// CheckBillingNoteReminders announces billing notes due in the next window.
func (s *Service) CheckBillingNoteReminders(ctx context.Context) (int, error) {
	today := s.clock().In(s.location)
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.location)
	to := from.AddDate(0, 0, s.billingDays)
	created := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		notes, err := repo.BillingNotesDue(ctx, from, to)
		if err != nil {
			return fmt.Errorf("load billing notes: %w", err)
		}
		for _, bn := range notes {
			customer := bn.Customer
			if customer == "" {
				customer = "Unknown Customer"
			}
			ok, err := repo.Emit(ctx, KindBillingNoteReminder, BillingNoteDueMessage(customer, bn.DueDate), true)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	return created, err
}

// CheckManufacturingFinish announces manufacturing orders whose state or
// component status reads as finished.
func (s *Service) CheckManufacturingFinish(ctx context.Context) (int, error) {
	created := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		orders, err := repo.PendingFinishOrders(ctx)
		if err != nil {
			return fmt.Errorf("load manufacturing orders: %w", err)
		}
		for _, o := range orders {
			if !shared.IsFinishedState(o.State) && !shared.IsFinishedState(o.ComponentStatus) {
				continue
			}
			ok, err := repo.Emit(ctx, KindManufacturingFinish, ManufacturingFinishedMessage(o.ProductNo, o.JobOrderCode), true)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
			if err := repo.MarkOrderFinishNotified(ctx, o.ID); err != nil {
				return err
			}
		}
		return nil
	})
	return created, err
}

// CheckAll runs every reminder check, logging and continuing past failures.
func (s *Service) CheckAll(ctx context.Context) (int, error) {
	total := 0
	var firstErr error
	checks := []struct {
		name string
		fn   func(context.Context) (int, error)
	}{
		{"activity", s.CheckActivityReminders},
		{"billing_note", s.CheckBillingNoteReminders},
		{"manufacturing_finish", s.CheckManufacturingFinish},
	}
	for _, c := range checks {
		n, err := c.fn(ctx)
		if err != nil {
			s.logger.Warn("reminder check failed", slog.String("check", c.name), slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += n
	}
	return total, firstErr
}

// Prune deletes read notifications older than retention.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.PruneRead(ctx, s.clock().Add(-retention))
}
