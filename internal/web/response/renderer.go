// Package response renders JSON response bodies and the error envelope.
package response

import (
	"encoding/json"
	"net/http"
)

// ListEnvelope wraps a list page with its pagination metadata
type ListEnvelope struct {
	Data       []map[string]interface{} `json:"data"`
	TotalCount int                      `json:"total_count"`
	Limit      int                      `json:"limit"`
	Offset     int                      `json:"offset"`
}

// RenderJSON writes a JSON response with the given status code
func RenderJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RenderList writes a 200 list page with pagination metadata
func RenderList(w http.ResponseWriter, data []map[string]interface{}, totalCount, limit, offset int) {
	if data == nil {
		data = []map[string]interface{}{}
	}
	RenderJSON(w, http.StatusOK, &ListEnvelope{
		Data:       data,
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	})
}

// RenderNoContent writes a 204 response
func RenderNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
