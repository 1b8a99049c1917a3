// Package http provides HTTP handlers for per-device flow resolution.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onboardkit/onboardkit/internal/models"
	"github.com/onboardkit/onboardkit/internal/service"
)

// ResolveService defines the interface for flow allocation required by the
// ResolveHandler.
type ResolveService interface {
	// Resolve returns the flow id allocated to the device within the
	// project. Returns service.ErrNoActiveFlow when the project has no
	// active flow.
	Resolve(ctx context.Context, projectID, deviceID string) (string, error)
}

// ResolveHandler handles HTTP requests for flow resolution.
type ResolveHandler struct {
	// ResolveService performs the underlying allocation.
	ResolveService ResolveService
}

// Resolve handles GET /api/onboarding/resolve requests.
// It expects projectId and deviceId query parameters and responds with the
// allocated flow id as JSON. A project without an active flow yields 404,
// which clients treat as the distinguished "no flow configured" outcome.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	deviceID := r.URL.Query().Get("deviceId")
	if projectID == "" || deviceID == "" {
		http.Error(w, "missing projectId or deviceId", http.StatusBadRequest)
		return
	}

	flowID, err := h.ResolveService.Resolve(r.Context(), projectID, deviceID)
	if errors.Is(err, service.ErrNoActiveFlow) {
		http.Error(w, "no flow configured", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(models.ResolveResponse{FlowID: flowID})
}
