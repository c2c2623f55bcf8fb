package api

import (
	"log/slog"
	"net/http"

	"github.com/calder-vision/atrium/internal/access"
	"github.com/calder-vision/atrium/internal/shell"
)

// Handler holds API route handlers.
type Handler struct {
	loop  *shell.Loop
	table *access.Table
}

// NewHandler creates a new Handler.
func NewHandler(loop *shell.Loop, table *access.Table) *Handler {
	return &Handler{loop: loop, table: table}
}

// GetState handles GET /shell/state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	view, err := h.loop.State(r.Context())
	if err != nil {
		slog.Error("state request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("shell loop unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{
		Resources: view.Resources,
		Identity:  view.Identity,
		Ready:     view.Ready,
		ViewMode:  access.Decide(view.Ready, view.Identity),
	})
}

// GetRoute handles GET /shell/route?path=/tasks.
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	view, err := h.loop.State(r.Context())
	if err != nil {
		slog.Error("state request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("shell loop unavailable"))
		return
	}
	mode := access.Decide(view.Ready, view.Identity)
	writeJSON(w, http.StatusOK, RouteResponse{
		ViewMode:   mode,
		Resolution: h.table.Resolve(mode, path, view.Identity),
	})
}

// GetRoutes handles GET /shell/routes.
func (h *Handler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RoutesResponse{Routes: h.table.Routes()})
}

// ResetIdentity handles POST /shell/reset. It discards the current
// identity (logout); in-flight loads dispatched under the old identity are
// ignored when they complete.
func (h *Handler) ResetIdentity(w http.ResponseWriter, r *http.Request) {
	h.loop.Post(shell.Event{Kind: shell.EventIdentityReset})
	w.WriteHeader(http.StatusAccepted)
}
