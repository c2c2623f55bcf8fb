package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/calder-vision/atrium/internal/access"
	"github.com/calder-vision/atrium/internal/shell"
)

// NewRouter creates a chi router with all shell API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(loop *shell.Loop, table *access.Table, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(loop, table)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/shell/state", h.GetState)
	r.Get("/shell/route", h.GetRoute)
	r.Get("/shell/routes", h.GetRoutes)
	r.Post("/shell/reset", h.ResetIdentity)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
