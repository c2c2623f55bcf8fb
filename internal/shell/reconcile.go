package shell

// Command is a single initialization action the orchestrator may dispatch.
type Command string

const (
	CmdVerifyIdentity     Command = "VerifyIdentity"
	CmdLoadUserAgreements Command = "LoadUserAgreements"
	CmdLoadAuthActions    Command = "LoadAuthActions"
	CmdLoadFormats        Command = "LoadFormats"
	CmdLoadAbout          Command = "LoadAbout"
	CmdInitModels         Command = "InitModels"
	CmdInitPlugins        Command = "InitPlugins"
)

// CommandResource maps each command to the resource it loads.
func CommandResource(cmd Command) Resource {
	switch cmd {
	case CmdVerifyIdentity:
		return ResourceUser
	case CmdLoadUserAgreements:
		return ResourceUserAgreements
	case CmdLoadAuthActions:
		return ResourceAuthActions
	case CmdLoadFormats:
		return ResourceFormats
	case CmdLoadAbout:
		return ResourceAbout
	case CmdInitModels:
		return ResourceModels
	case CmdInitPlugins:
		return ResourcePlugins
	}
	return ""
}

// Snapshot is the immutable view of shell state a single tick operates on.
type Snapshot struct {
	Resources         map[Resource]ResourceState
	Identity          *Identity
	ModelPluginActive bool
}

func (s Snapshot) needs(r Resource) bool {
	st := s.Resources[r]
	return !st.Initialized && !st.Fetching
}

// Ready reports whether the shell has loaded everything the current
// identity requires. An anonymous or unverified identity needs only the
// user resource; a verified identity additionally needs formats, about,
// plugins, and models when the model plugin is active.
func (s Snapshot) Ready() bool {
	if !s.Resources[ResourceUser].Initialized {
		return false
	}
	if !s.Identity.Verified() {
		return true
	}
	return s.Resources[ResourceFormats].Initialized &&
		s.Resources[ResourceAbout].Initialized &&
		s.Resources[ResourcePlugins].Initialized &&
		(!s.ModelPluginActive || s.Resources[ResourceModels].Initialized)
}

// Reconcile inspects the snapshot and returns the commands to dispatch this
// tick. Every emission is guarded by "not initialized and not fetching", so
// re-running with an unchanged snapshot after dispatch yields nothing.
//
// The cascade is strict: identity must exist before agreement status is
// meaningful, and agreement status gates everything below it. Auth-action
// metadata has no downstream dependents and loads opportunistically. No
// content resource is fetched for an anonymous or unverified identity.
func Reconcile(s Snapshot) []Command {
	if s.needs(ResourceUser) {
		return []Command{CmdVerifyIdentity}
	}
	if s.needs(ResourceUserAgreements) {
		return []Command{CmdLoadUserAgreements}
	}

	var cmds []Command
	if s.needs(ResourceAuthActions) {
		cmds = append(cmds, CmdLoadAuthActions)
	}

	if !s.Identity.Verified() {
		return cmds
	}

	if s.needs(ResourceFormats) {
		cmds = append(cmds, CmdLoadFormats)
	}
	if s.needs(ResourceAbout) {
		cmds = append(cmds, CmdLoadAbout)
	}
	if s.ModelPluginActive && s.needs(ResourceModels) {
		cmds = append(cmds, CmdInitModels)
	}
	if s.needs(ResourcePlugins) {
		cmds = append(cmds, CmdInitPlugins)
	}
	return cmds
}
