package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", fmt.Errorf("quotation 4: %w", ErrNotFound), http.StatusNotFound},
		{"duplicate", fmt.Errorf("number: %w", ErrDuplicate), http.StatusConflict},
		{"validation", fmt.Errorf("%w: bad", ErrValidation), http.StatusBadRequest},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "quotations_file_name_key"}, http.StatusConflict},
		{"serialization", &pgconn.PgError{Code: "40001"}, http.StatusConflict},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestRespondErrorRendersFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("create: %w", FieldErrors{"file_name": "File name must be unique"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ValidationProblem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "File name must be unique", body.Errors["file_name"])
}

func TestRespondErrorDuplicateField(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, DuplicateField("number", "Invoice number already exists"))

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invoice number already exists")
}

type sampleRequest struct {
	Title string  `json:"title" validate:"required,max=5"`
	Qty   float64 `json:"qty" validate:"gte=0"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	err := Validate(sampleRequest{Title: "", Qty: -1})
	require.Error(t, err)

	fields, ok := err.(FieldErrors)
	require.True(t, ok)
	assert.Equal(t, "is required", fields["title"])
	assert.Contains(t, fields["qty"], "greater than or equal")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDecodeAndValidate(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"ok","qty":2}`))
	var req sampleRequest
	require.NoError(t, DecodeAndValidate(r, &req))
	assert.Equal(t, "ok", req.Title)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.ErrorIs(t, DecodeJSON(r, &req), ErrValidation)
}
