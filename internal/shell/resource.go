// Package shell implements the application bootstrap orchestrator: a
// readiness tracker over the remote resources the UI needs before it can
// render, and a re-entrant reconciliation loop that decides which
// initialization command to dispatch next.
package shell

// Resource identifies one discrete piece of remote state the shell must
// load before the application is considered ready.
type Resource string

const (
	ResourceUser           Resource = "user"
	ResourceUserAgreements Resource = "userAgreements"
	ResourceAuthActions    Resource = "authActions"
	ResourceFormats        Resource = "formats"
	ResourceAbout          Resource = "about"
	ResourcePlugins        Resource = "plugins"
	ResourceModels         Resource = "models"
)

// AllResources returns every tracked resource in a stable order.
func AllResources() []Resource {
	return []Resource{
		ResourceUser,
		ResourceUserAgreements,
		ResourceAuthActions,
		ResourceFormats,
		ResourceAbout,
		ResourcePlugins,
		ResourceModels,
	}
}

// ResourceState holds the load state of a single resource. Fetching implies
// not-yet-initialized at the start of a tick; both flags are never true
// across tick boundaries.
type ResourceState struct {
	Initialized bool `json:"initialized"`
	Fetching    bool `json:"fetching"`
}

// Tracker holds per-resource load state. It is owned by the tick loop
// goroutine; it is not safe for concurrent use.
type Tracker struct {
	states map[Resource]ResourceState
}

// NewTracker creates a tracker with every resource unready.
func NewTracker() *Tracker {
	t := &Tracker{states: make(map[Resource]ResourceState, len(AllResources()))}
	for _, r := range AllResources() {
		t.states[r] = ResourceState{}
	}
	return t
}

// Get returns the state of r.
func (t *Tracker) Get(r Resource) ResourceState {
	return t.states[r]
}

// MarkFetching records that a load command for r has been dispatched.
func (t *Tracker) MarkFetching(r Resource) {
	t.states[r] = ResourceState{Fetching: true}
}

// MarkInitialized records a successful load completion for r.
func (t *Tracker) MarkInitialized(r Resource) {
	t.states[r] = ResourceState{Initialized: true}
}

// MarkFailed resets the fetching flag without initializing, leaving r
// eligible for a retry on the next tick.
func (t *Tracker) MarkFailed(r Resource) {
	t.states[r] = ResourceState{}
}

// Reset returns the given resources to the unready state.
func (t *Tracker) Reset(resources ...Resource) {
	for _, r := range resources {
		t.states[r] = ResourceState{}
	}
}

// Snapshot returns a copy of all resource states.
func (t *Tracker) Snapshot() map[Resource]ResourceState {
	out := make(map[Resource]ResourceState, len(t.states))
	for r, st := range t.states {
		out[r] = st
	}
	return out
}
