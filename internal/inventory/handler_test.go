package inventory

import (
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
)

func newTestRouter(repo *memoryRepo) http.Handler {
	svc, _, _ := newTestService(repo, ServiceConfig{AllowNegativeStock: true})
	r := chi.NewRouter()
	NewHandler(slog.Default(), svc).MountRoutes(r)
	return r
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func request(method, target, body string) *http.Request {
	return httptest.NewRequest(method, target, strings.NewReader(body))
}

func TestInventoryEndpoints(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	rec := serve(router, request(http.MethodGet, "/inventories", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = serve(router, request(http.MethodPost, "/inventories", `{"product_no":"P-1","name":"Widget","stock":"1,200"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv Inventory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.True(t, decimal.NewFromInt(1200).Equal(inv.Stock))
	path := "/inventories/" + strconv.FormatInt(inv.ID, 10)
	assert.Equal(t, "/api"+path, rec.Header().Get("Location"))

	req := request(http.MethodPost, path+"/adjust", `{"delta":-200}`)
	req.Header.Set("Idempotency-Key", "abc")
	rec = serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = request(http.MethodPost, path+"/adjust", `{"delta":-200}`)
	req.Header.Set("Idempotency-Key", "abc")
	rec = serve(router, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.True(t, decimal.NewFromInt(1000).Equal(repo.stockOf("P-1")))

	rec = serve(router, request(http.MethodGet, path+"/movements?limit=1", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	var moves []struct {
		Action string         `json:"action"`
		Meta   map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &moves))
	require.Len(t, moves, 1)
	assert.Equal(t, "inventory:adjustment", moves[0].Action)
	assert.Equal(t, "-200", moves[0].Meta["delta"])

	rec = serve(router, request(http.MethodDelete, path, ""))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(router, request(http.MethodGet, path, ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeliveryEndpointsValidateStatus(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	rec := serve(router, request(http.MethodPost, "/deliveries", `{"product_no":"P-1","status":"lost"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, request(http.MethodPost, "/deliveries", `{"customer_name":"Acme","product_no":"P-1","order_amount":5}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var d Delivery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))

	rec = serve(router, request(http.MethodPatch, "/deliveries/"+strconv.FormatInt(d.ID, 10), `{"status":"delivered"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"delivered"`)
	assert.True(t, decimal.NewFromInt(-5).Equal(repo.stockOf("P-1")))
}

func TestManufacturingOrderEndpoints(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	rec := serve(router, request(http.MethodPost, "/manufacturing-orders", `{"job_order_code":"JO-7","product_no":"P-7","quantity":3}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var mo ManufacturingOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mo))
	assert.Equal(t, "Draft", mo.State)

	rec = serve(router, request(http.MethodPut, "/manufacturing-orders/"+strconv.FormatInt(mo.ID, 10), `{"state":"Finished"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decimal.NewFromInt(3).Equal(repo.stockOf("P-7")))

	rec = serve(router, request(http.MethodGet, "/manufacturing-orders/999", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
