// Package http provides HTTP routing and middleware configuration
// for the onboarding backend.
package http

import (
	"net/http"

	"github.com/onboardkit/onboardkit/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// onboarding backend API. It applies request-id tagging, panic recovery,
// and request logging, and mounts the config, resolve, and content
// endpoints.
//
// Routes:
//
//	GET /v1/config                       → configHandler.Config (APIKeyAuth)
//	GET /api/onboarding/resolve          → resolveHandler.Resolve
//	GET /onboarding/{flowID}/{screen}    → contentHandler.Screen
func NewRouter(
	configHandler *ConfigHandler,
	resolveHandler *ResolveHandler,
	contentHandler *ContentHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	// Global config endpoint, keyed by api key
	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.APIKeyAuth).Get("/config", configHandler.Config)
	})

	// Flow resolution, public per device
	r.Get("/api/onboarding/resolve", resolveHandler.Resolve)

	// Onboarding content pages
	r.Get("/onboarding/{flowID}/{screen}", contentHandler.Screen)

	return r
}
