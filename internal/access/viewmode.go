// Package access decides the top-level view mode from readiness and
// identity, and resolves paths against the static role-guarded route table.
package access

import "github.com/calder-vision/atrium/internal/shell"

// ViewMode is the top-level rendering branch.
type ViewMode string

const (
	// ModeLoading blocks rendering while required resources load.
	ModeLoading ViewMode = "loading"
	// ModeAuthGate exposes only the unauthenticated routes.
	ModeAuthGate ViewMode = "auth_gate"
	// ModeUnverifiedGate exposes only the email-confirmation route.
	ModeUnverifiedGate ViewMode = "unverified_gate"
	// ModeMainApp exposes the full route table.
	ModeMainApp ViewMode = "main_app"
)

// Decide maps readiness and identity to one of the four mutually exclusive
// view modes.
func Decide(ready bool, identity *shell.Identity) ViewMode {
	if !ready {
		return ModeLoading
	}
	if identity == nil {
		return ModeAuthGate
	}
	if !identity.IsVerified {
		return ModeUnverifiedGate
	}
	return ModeMainApp
}
