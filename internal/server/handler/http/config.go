// Package http provides HTTP handlers for the backend-domain config lookup.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onboardkit/onboardkit/internal/middleware"
	"github.com/onboardkit/onboardkit/internal/models"
	"github.com/onboardkit/onboardkit/internal/service"
)

// ConfigService defines the interface for backend-domain lookup
// required by the ConfigHandler.
type ConfigService interface {
	// BackendDomain resolves the backend domain for the given api key and
	// project id. Returns service.ErrProjectNotFound for an unknown key or
	// a key/project mismatch.
	BackendDomain(ctx context.Context, apiKey, projectID string) (string, error)
}

// ConfigHandler handles HTTP requests for the global config endpoint.
type ConfigHandler struct {
	// ConfigService performs the underlying lookup.
	ConfigService ConfigService
}

// Config handles GET /v1/config requests.
// It expects apiKey (validated by middleware) and projectId query
// parameters and responds with the project's backend domain as JSON.
func (h *ConfigHandler) Config(w http.ResponseWriter, r *http.Request) {
	apiKey := middleware.GetAPIKeyFromContext(r.Context())
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		http.Error(w, "missing projectId", http.StatusBadRequest)
		return
	}

	domain, err := h.ConfigService.BackendDomain(r.Context(), apiKey, projectID)
	if errors.Is(err, service.ErrProjectNotFound) {
		http.Error(w, "unknown project", http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(models.ConfigResponse{BackendDomain: domain})
}
