package projects

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *mockRepository) http.Handler {
	h := NewHandler(slog.Default(), NewService(repo, nil))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestProjectEndpoints(t *testing.T) {
	repo := newMockRepository()
	acme := repo.addCustomer("Acme Co")
	router := newTestRouter(repo)

	rec := serve(router, http.MethodPost, "/projects", `{"name":"Rollout","customer_id":`+strconv.FormatInt(acme.ID, 10)+`,"priority":"high"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "high", p.Priority)

	projectPath := "/projects/" + strconv.FormatInt(p.ID, 10)
	rec = serve(router, http.MethodPost, "/tasks", `{"project_id":`+strconv.FormatInt(p.ID, 10)+`,"title":"Kickoff","due_date":"2026-03-05"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(router, http.MethodGet, projectPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["task_total"])
	assert.Len(t, body["tasks"], 1)

	rec = serve(router, http.MethodGet, "/projects?customer_id="+strconv.FormatInt(acme.ID, 10), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = serve(router, http.MethodGet, projectPath+"/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "2026-03-05", tasks[0].DueDate.Format("2006-01-02"))

	rec = serve(router, http.MethodPatch, projectPath, `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(router, http.MethodDelete, projectPath, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(router, http.MethodGet, projectPath+"/tasks", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectEndpointValidation(t *testing.T) {
	router := newTestRouter(newMockRepository())

	cases := []struct {
		name   string
		method string
		target string
		body   string
		field  string
	}{
		{"bad status", http.MethodPost, "/projects", `{"name":"x","status":"archived"}`, "status"},
		{"bad date", http.MethodPost, "/projects", `{"name":"x","start_date":"03/01/2026"}`, "start_date"},
		{"missing name", http.MethodPost, "/projects", `{"color":"#000"}`, "name"},
		{"bad filter", http.MethodGet, "/projects?customer_id=abc", "", "customer_id"},
		{"unknown project", http.MethodPost, "/tasks", `{"project_id":5,"title":"x"}`, "project_id"},
		{"bad task status", http.MethodPost, "/tasks", `{"project_id":5,"title":"x","status":"later"}`, "status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(router, tc.method, tc.target, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			errs, ok := body["errors"].(map[string]any)
			require.True(t, ok)
			assert.Contains(t, errs, tc.field)
		})
	}
}

func TestTaskNotFound(t *testing.T) {
	router := newTestRouter(newMockRepository())
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/tasks/9", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodDelete, "/tasks/9", "").Code)
}
