package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saurabh1e/pos-api/internal/schema"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRenderJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderJSON(rec, http.StatusCreated, map[string]string{"name": "aspirin"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "aspirin", decode(t, rec)["name"])
}

func TestRenderListWrapsPaginationMetadata(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderList(rec, []map[string]interface{}{{"id": 1}}, 42, 20, 0)

	body := decode(t, rec)
	assert.Equal(t, float64(42), body["total_count"])
	assert.Equal(t, float64(20), body["limit"])
	assert.Equal(t, float64(0), body["offset"])
	assert.Len(t, body["data"], 1)
}

func TestRenderListNilDataIsEmptyArray(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderList(rec, nil, 0, 20, 0)

	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestErrorRenderers(t *testing.T) {
	tests := []struct {
		name   string
		render func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"bad request", func(w http.ResponseWriter) { RenderBadRequest(w, "bad filter") },
			http.StatusBadRequest, "bad_request"},
		{"unauthorized", func(w http.ResponseWriter) { RenderUnauthorized(w, "") },
			http.StatusUnauthorized, "unauthorized"},
		{"forbidden", func(w http.ResponseWriter) { RenderForbidden(w) },
			http.StatusForbidden, "forbidden"},
		{"not found", func(w http.ResponseWriter) { RenderNotFound(w, "") },
			http.StatusNotFound, "not_found"},
		{"conflict", func(w http.ResponseWriter) { RenderConflict(w, "duplicate") },
			http.StatusConflict, "conflict"},
		{"internal", RenderInternalError,
			http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.render(rec)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode(t, rec)["code"])
		})
	}
}

func TestForbiddenMessageIsGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderForbidden(rec)
	assert.Equal(t, "access denied", decode(t, rec)["message"])
}

func TestRenderValidationError(t *testing.T) {
	verrs := schema.NewValidationErrors()
	verrs.Add("name", "missing required field")
	verrs.Add("price", "must be a number")

	rec := httptest.NewRecorder()
	RenderValidationError(rec, verrs)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation_failed", body["error"])
	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "price")
}

func TestRenderErrorRoutesValidationErrors(t *testing.T) {
	verrs := schema.NewValidationErrors()
	verrs.Add("name", "missing required field")

	rec := httptest.NewRecorder()
	RenderError(rec, http.StatusInternalServerError, verrs)

	// Validation errors always render as 400, whatever status was passed
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderNoContent(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}
