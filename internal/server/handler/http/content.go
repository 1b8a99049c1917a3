// Package http provides the placeholder onboarding content endpoint.
package http

import (
	"fmt"
	"html"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ContentHandler serves placeholder flow screens. Production deployments
// put the real authored content behind this route; the handler exists so
// the backend is runnable end to end out of the box.
type ContentHandler struct{}

// Screen handles GET /onboarding/{flowID}/{screen} requests with a minimal
// HTML page identifying the flow and screen.
func (h *ContentHandler) Screen(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")
	screen := chi.URLParam(r, "screen")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Onboarding</title></head>
<body>
<h1>Flow %s, screen %s</h1>
<p>Replace this route with your authored onboarding content.</p>
</body>
</html>
`, html.EscapeString(flowID), html.EscapeString(screen))
}
