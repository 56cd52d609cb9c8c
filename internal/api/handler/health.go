// Package handler provides HTTP handlers for the REST API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/AutelysZ/certkit/internal/api/dto"
	apierrors "github.com/AutelysZ/certkit/internal/api/errors"
)

// HealthHandler handles health and readiness endpoints.
type HealthHandler struct {
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := dto.HealthResponse{
		Status:  "ok",
		Version: h.version,
	}

	respondJSON(w, http.StatusOK, resp)
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{
		"server": true,
	}

	allReady := true
	for _, ready := range checks {
		if !ready {
			allReady = false
			break
		}
	}

	resp := dto.ReadyResponse{
		Ready:  allReady,
		Checks: checks,
	}

	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, resp)
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, apiErr *dto.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// respondMapped maps a domain error to its HTTP representation.
func respondMapped(w http.ResponseWriter, err error) {
	status, apiErr := apierrors.MapError(err)
	respondError(w, status, apiErr)
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
