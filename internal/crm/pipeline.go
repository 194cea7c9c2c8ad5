package crm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

// Stage is a configurable pipeline column. Deal.Stage stays free text; the
// list only drives how boards are laid out.
type Stage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Position  int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// StageRequest creates or renames a stage.
type StageRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Position *int   `json:"order,omitempty" validate:"omitempty,gte=0"`
}

// StageTotals is the deal count and amount recorded under one stage value.
type StageTotals struct {
	Stage  string
	Deals  int64
	Amount decimal.Decimal
}

// PipelineSummary is the body of GET /crm/analytics.
type PipelineSummary struct {
	Deals DealSummary `json:"deals"`
}

// DealSummary counts deals overall, per stage and in won stages.
type DealSummary struct {
	Total    int64            `json:"total"`
	WonDeals int64            `json:"won_deals"`
	WonValue decimal.Decimal  `json:"won_value"`
	ByStage  map[string]int64 `json:"by_stage"`
}

// IsWonStage reports whether a stage label counts as won. Any label that
// contains "won", in any case, qualifies.
func IsWonStage(stage string) bool {
	return strings.Contains(strings.ToLower(stage), "won")
}

// Summarize folds per-stage totals into a PipelineSummary.
func Summarize(totals []StageTotals) PipelineSummary {
	out := DealSummary{WonValue: decimal.Zero, ByStage: make(map[string]int64, len(totals))}
	for _, t := range totals {
		out.Total += t.Deals
		out.ByStage[t.Stage] += t.Deals
		if IsWonStage(t.Stage) {
			out.WonDeals += t.Deals
			out.WonValue = out.WonValue.Add(t.Amount)
		}
	}
	return PipelineSummary{Deals: out}
}

// Analytics summarises the whole pipeline.
func (s *Service) Analytics(ctx context.Context) (PipelineSummary, error) {
	totals, err := s.repo.StageTotals(ctx)
	if err != nil {
		return PipelineSummary{}, fmt.Errorf("pipeline analytics: %w", err)
	}
	return Summarize(totals), nil
}

// ListStages returns stages by position, then creation.
func (s *Service) ListStages(ctx context.Context) ([]Stage, error) {
	stages, err := s.repo.ListStages(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(stages, func(i, j int) bool {
		if stages[i].Position != stages[j].Position {
			return stages[i].Position < stages[j].Position
		}
		return stages[i].CreatedAt.Before(stages[j].CreatedAt)
	})
	return stages, nil
}

// CreateStage adds a stage. Without an explicit order it goes last.
func (s *Service) CreateStage(ctx context.Context, req StageRequest) (*Stage, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, httpx.FieldError("name", "is required")
	}
	st := Stage{Name: name}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if req.Position != nil {
			st.Position = *req.Position
		} else {
			existing, err := repo.ListStages(ctx)
			if err != nil {
				return err
			}
			for _, e := range existing {
				if e.Position >= st.Position {
					st.Position = e.Position + 1
				}
			}
		}
		id, err := repo.CreateStage(ctx, st)
		st.ID = id
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create stage: %w", err)
	}
	return &st, nil
}

// UpdateStage renames or moves a stage. Deals keep the label they carry.
func (s *Service) UpdateStage(ctx context.Context, id int64, req StageRequest) (*Stage, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, httpx.FieldError("name", "is required")
	}
	var out *Stage
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		st, err := repo.GetStage(ctx, id)
		if err != nil {
			return err
		}
		st.Name = name
		if req.Position != nil {
			st.Position = *req.Position
		}
		if err := repo.UpdateStage(ctx, *st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update stage: %w", err)
	}
	return out, nil
}

func (s *Service) DeleteStage(ctx context.Context, id int64) error {
	return s.repo.DeleteStage(ctx, id)
}
