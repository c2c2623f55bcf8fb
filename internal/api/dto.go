package api

import (
	"github.com/calder-vision/atrium/internal/access"
	"github.com/calder-vision/atrium/internal/shell"
)

// StateResponse is the full shell state: per-resource readiness, the
// current identity, and the view mode the UI must render.
type StateResponse struct {
	Resources map[shell.Resource]shell.ResourceState `json:"resources"`
	Identity  *shell.Identity                        `json:"identity"`
	Ready     bool                                   `json:"ready"`
	ViewMode  access.ViewMode                        `json:"view_mode"`
}

// RouteResponse is the routing decision for one path under the current
// shell state.
type RouteResponse struct {
	ViewMode   access.ViewMode   `json:"view_mode"`
	Resolution access.Resolution `json:"resolution"`
}

// RoutesResponse lists the static route table for this session.
type RoutesResponse struct {
	Routes []access.Route `json:"routes"`
}
