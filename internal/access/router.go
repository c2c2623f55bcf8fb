package access

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/calder-vision/atrium/internal/shell"
)

// ResolutionKind is the outcome of resolving a path under a view mode.
type ResolutionKind string

const (
	// ResolutionLoading blocks rendering; no routes are active.
	ResolutionLoading ResolutionKind = "loading"
	// ResolutionRender renders the named component.
	ResolutionRender ResolutionKind = "render"
	// ResolutionRedirect sends the client to RedirectTo.
	ResolutionRedirect ResolutionKind = "redirect"
	// ResolutionNotFound renders the not-found view. A role-guarded route
	// resolves here for non-superusers: the page does not exist for them,
	// which is distinct from "log in first".
	ResolutionNotFound ResolutionKind = "not_found"
)

// Resolution is the routing decision for one path.
type Resolution struct {
	Kind       ResolutionKind `json:"kind"`
	Component  string         `json:"component,omitempty"`
	RedirectTo string         `json:"redirect_to,omitempty"`
}

// Table matches paths against the static route tables. The model plugin
// flag is constant for the session, so the /models route is included or
// excluded at construction.
type Table struct {
	main      *chi.Mux
	auth      *chi.Mux
	mainByPat map[string]Route
	authByPat map[string]Route
}

var nopHandler = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

// NewTable builds the route matchers.
func NewTable(modelPluginActive bool) *Table {
	t := &Table{
		main:      chi.NewRouter(),
		auth:      chi.NewRouter(),
		mainByPat: make(map[string]Route),
		authByPat: make(map[string]Route),
	}
	for _, rt := range mainRoutes {
		if rt.ModelPlugin && !modelPluginActive {
			continue
		}
		t.main.Get(rt.Pattern, nopHandler)
		t.mainByPat[rt.Pattern] = rt
	}
	for _, rt := range authRoutes {
		t.auth.Get(rt.Pattern, nopHandler)
		t.authByPat[rt.Pattern] = rt
	}
	return t
}

// Routes returns the main-app route table as built for this session.
func (t *Table) Routes() []Route {
	out := make([]Route, 0, len(t.mainByPat))
	for _, rt := range mainRoutes {
		if r, ok := t.mainByPat[rt.Pattern]; ok {
			out = append(out, r)
		}
	}
	return out
}

func match(mux *chi.Mux, byPat map[string]Route, path string) (Route, bool) {
	rctx := chi.NewRouteContext()
	pattern := mux.Find(rctx, http.MethodGet, path)
	if pattern == "" {
		return Route{}, false
	}
	rt, ok := byPat[pattern]
	return rt, ok
}

// Resolve computes the routing decision for path under the given view mode
// and identity.
func (t *Table) Resolve(mode ViewMode, path string, identity *shell.Identity) Resolution {
	switch mode {
	case ModeLoading:
		return Resolution{Kind: ResolutionLoading}

	case ModeAuthGate:
		if rt, ok := match(t.auth, t.authByPat, path); ok {
			return Resolution{Kind: ResolutionRender, Component: rt.Component}
		}
		return Resolution{Kind: ResolutionRedirect, RedirectTo: LoginPath}

	case ModeUnverifiedGate:
		if path == emailConfirmationRoute.Pattern {
			return Resolution{Kind: ResolutionRender, Component: emailConfirmationRoute.Component}
		}
		return Resolution{Kind: ResolutionRedirect, RedirectTo: EmailConfirmationPath}

	case ModeMainApp:
		if rt, ok := match(t.main, t.mainByPat, path); ok {
			if rt.RequiredRole == RoleSuperuser && !identity.Superuser() {
				return Resolution{Kind: ResolutionNotFound}
			}
			return Resolution{Kind: ResolutionRender, Component: rt.Component}
		}
		if identity.Superuser() {
			return Resolution{Kind: ResolutionRedirect, RedirectTo: ProjectsPath}
		}
		return Resolution{Kind: ResolutionRedirect, RedirectTo: TasksPath}
	}

	return Resolution{Kind: ResolutionLoading}
}
