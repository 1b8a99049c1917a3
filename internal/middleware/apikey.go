// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"net/http"
)

type ctxKey string

const apiKeyKey ctxKey = "apiKey"

// APIKeyAuth is a middleware that enforces api-key authentication.
//
// It checks the incoming request for a non-empty apiKey query parameter and
// stores it in the request context, so handlers can validate it against the
// project store. Requests without a key are rejected before reaching any
// handler. Key/project matching itself is business logic and stays in the
// service layer.
func APIKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("apiKey")
		if key == "" {
			http.Error(w, "missing api key", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), apiKeyKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAPIKeyFromContext extracts the api key stored by APIKeyAuth.
// Returns an empty string if not found.
func GetAPIKeyFromContext(ctx context.Context) string {
	val := ctx.Value(apiKeyKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
