package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestRouter(repo *mockRepository) http.Handler {
	h := NewHandler(slog.Default(), NewService(repo, nil))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestCreateCustomerValidation(t *testing.T) {
	router := newTestRouter(newMockRepository())

	req := httptest.NewRequest(http.MethodPost, "/customers", strings.NewReader(`{"tax_id":"1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "company_name")
}

func TestCreateDealEndpoint(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/deals", strings.NewReader(`{"customer_name":"Acme Co","amount":"1500.50"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var deal Deal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deal))
	assert.Equal(t, DefaultDealTitle, deal.Title)
	assert.True(t, deal.Amount.Equal(decimal.RequireFromString("1500.50")))
	assert.Equal(t, "/api/deals/"+itoa(deal.ID), rec.Header().Get("Location"))
}

func TestShowDealNotFound(t *testing.T) {
	router := newTestRouter(newMockRepository())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deals/42", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportDealsWorkbook(t *testing.T) {
	repo := newMockRepository()
	seedCustomerWithDeal(t, repo)
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deals/export.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(pipelineSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Title", rows[0][1])
	assert.Equal(t, "Pumps", rows[1][1])
	assert.Equal(t, "Acme Co", rows[1][2])
}

func TestDealHistoryEndpoint(t *testing.T) {
	repo := newMockRepository()
	_, d := seedCustomerWithDeal(t, repo)
	svc := NewService(repo, nil)
	_, err := svc.UpdateDeal(context.Background(), d.ID, DealRequest{Stage: strPtr("Proposal")})
	require.NoError(t, err)

	router := newTestRouter(repo)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deals/"+itoa(d.ID)+"/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var items []DealHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Proposal", items[0].ToStage)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestUpdateDealRejectsCommaInContactName(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(repo)
	_, d := seedCustomerWithDeal(t, repo)

	body := `{"extra_contacts":[{"name":"Smith, John","email":"j@x.test","division":"QA"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/deals/"+itoa(d.ID), strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	errs, ok := resp["errors"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "must not contain commas", errs["extra_contacts[0].name"])
}
