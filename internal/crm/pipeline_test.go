package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

func (m *mockRepository) ListStages(ctx context.Context) ([]Stage, error) {
	out := make([]Stage, 0, len(m.stages))
	for _, st := range m.stages {
		out = append(out, *st)
	}
	return out, nil
}

func (m *mockRepository) GetStage(ctx context.Context, id int64) (*Stage, error) {
	st, ok := m.stages[id]
	if !ok {
		return nil, ErrStageNotFound
	}
	cp := *st
	return &cp, nil
}

func (m *mockRepository) stageNameTaken(name string, except int64) bool {
	for id, st := range m.stages {
		if id != except && strings.EqualFold(st.Name, name) {
			return true
		}
	}
	return false
}

func (m *mockRepository) CreateStage(ctx context.Context, st Stage) (int64, error) {
	if m.stageNameTaken(st.Name, 0) {
		return 0, fmt.Errorf("%w: pipeline_stages_name_key", httpx.ErrDuplicate)
	}
	st.ID = m.id()
	st.CreatedAt = time.Date(2025, 1, 1, 0, 0, int(st.ID), 0, time.UTC)
	m.stages[st.ID] = &st
	return st.ID, nil
}

func (m *mockRepository) UpdateStage(ctx context.Context, st Stage) error {
	if _, ok := m.stages[st.ID]; !ok {
		return ErrStageNotFound
	}
	if m.stageNameTaken(st.Name, st.ID) {
		return fmt.Errorf("%w: pipeline_stages_name_key", httpx.ErrDuplicate)
	}
	m.stages[st.ID] = &st
	return nil
}

func (m *mockRepository) DeleteStage(ctx context.Context, id int64) error {
	if _, ok := m.stages[id]; !ok {
		return ErrStageNotFound
	}
	delete(m.stages, id)
	return nil
}

func (m *mockRepository) StageTotals(ctx context.Context) ([]StageTotals, error) {
	byStage := map[string]*StageTotals{}
	var out []StageTotals
	for _, d := range m.deals {
		t, ok := byStage[d.Stage]
		if !ok {
			t = &StageTotals{Stage: d.Stage, Amount: decimal.Zero}
			byStage[d.Stage] = t
		}
		t.Deals++
		t.Amount = t.Amount.Add(d.Amount)
	}
	for _, t := range byStage {
		out = append(out, *t)
	}
	return out, nil
}

func TestSummarizeCountsWonStagesCaseInsensitively(t *testing.T) {
	s := Summarize([]StageTotals{
		{Stage: "New", Deals: 3, Amount: decimal.NewFromInt(300)},
		{Stage: "Closed Won", Deals: 2, Amount: decimal.RequireFromString("1500.50")},
		{Stage: "won - pending PO", Deals: 1, Amount: decimal.NewFromInt(10)},
		{Stage: "Lost", Deals: 4, Amount: decimal.NewFromInt(999)},
	})

	assert.Equal(t, int64(10), s.Deals.Total)
	assert.Equal(t, int64(3), s.Deals.WonDeals)
	assert.True(t, decimal.RequireFromString("1510.50").Equal(s.Deals.WonValue), s.Deals.WonValue.String())
	assert.Equal(t, map[string]int64{"New": 3, "Closed Won": 2, "won - pending PO": 1, "Lost": 4}, s.Deals.ByStage)

	empty := Summarize(nil)
	assert.Zero(t, empty.Deals.Total)
	assert.NotNil(t, empty.Deals.ByStage)
	assert.True(t, empty.Deals.WonValue.IsZero())
}

func TestStagesAppendAndReorder(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	first, err := svc.CreateStage(ctx, StageRequest{Name: " Lead "})
	require.NoError(t, err)
	assert.Equal(t, "Lead", first.Name)
	assert.Equal(t, 0, first.Position)

	second, err := svc.CreateStage(ctx, StageRequest{Name: "Proposal"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Position)

	_, err = svc.CreateStage(ctx, StageRequest{Name: "lead"})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)

	zero := 0
	_, err = svc.UpdateStage(ctx, second.ID, StageRequest{Name: "Proposal", Position: &zero})
	require.NoError(t, err)

	stages, err := svc.ListStages(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "Lead", stages[0].Name, "equal positions fall back to creation order")
	assert.Equal(t, "Proposal", stages[1].Name)

	_, err = svc.UpdateStage(ctx, 404, StageRequest{Name: "Gone"})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestAnalyticsEndpoint(t *testing.T) {
	repo := newMockRepository()
	seedCustomerWithDeal(t, repo)
	_, err := repo.CreateDeal(context.Background(), Deal{Title: "Lasers", Stage: "Won", Amount: decimal.NewFromInt(2500)})
	require.NoError(t, err)
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/crm/analytics", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Deals struct {
			Total    int64            `json:"total"`
			WonDeals int64            `json:"won_deals"`
			WonValue string           `json:"won_value"`
			ByStage  map[string]int64 `json:"by_stage"`
		} `json:"deals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Deals.Total)
	assert.Equal(t, int64(1), body.Deals.WonDeals)
	assert.Equal(t, "2500", body.Deals.WonValue)
	assert.Equal(t, map[string]int64{"New": 1, "Won": 1}, body.Deals.ByStage)
}

func TestStageEndpoints(t *testing.T) {
	router := newTestRouter(newMockRepository())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stages", strings.NewReader(`{"name":"Negotiation","order":3}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stages", strings.NewReader(`{"name":"negotiation"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stages", strings.NewReader(`{"order":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stages []Stage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stages))
	require.Len(t, stages, 1)
	assert.Equal(t, 3, stages[0].Position)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/stages/"+itoa(stages[0].ID), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
