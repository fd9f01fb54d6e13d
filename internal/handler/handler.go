// Package handler provides the operational HTTP endpoints.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/middleware"
)

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	Path      string `json:"path"`
	RequestID string `json:"request_id,omitempty"`
}

// Handler answers requests the router cannot route. Only the operational
// endpoints exist, so the body lists them.
type Handler struct {
	routes []string
}

// New creates a Handler that advertises routes in its 404 answers.
func New(routes ...string) *Handler {
	return &Handler{routes: routes}
}

// NotFound answers unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, struct {
		ErrorResponse
		Routes []string `json:"routes,omitempty"`
	}{
		ErrorResponse: errorFor(r, "resource not found"),
		Routes:        h.routes,
	})
}

// MethodNotAllowed answers known paths hit with an unsupported method. The
// operational routes are read-only.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	writeJSON(w, http.StatusMethodNotAllowed, errorFor(r, r.Method+" not allowed"))
}

func errorFor(r *http.Request, msg string) ErrorResponse {
	return ErrorResponse{
		Error:     msg,
		Path:      r.URL.Path,
		RequestID: middleware.GetRequestID(r.Context()),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
