package shell

import (
	"reflect"
	"testing"
)

// snap builds a snapshot with the given initialized resources.
func snap(identity *Identity, modelPlugin bool, initialized ...Resource) Snapshot {
	s := Snapshot{
		Resources:         make(map[Resource]ResourceState),
		Identity:          identity,
		ModelPluginActive: modelPlugin,
	}
	for _, r := range AllResources() {
		s.Resources[r] = ResourceState{}
	}
	for _, r := range initialized {
		s.Resources[r] = ResourceState{Initialized: true}
	}
	return s
}

func setFetching(s Snapshot, r Resource) Snapshot {
	s.Resources[r] = ResourceState{Fetching: true}
	return s
}

func TestReconcile_UserUnreadyEmitsOnlyVerify(t *testing.T) {
	// Other flags must not matter while the user resource is unready.
	cases := []Snapshot{
		snap(nil, false),
		snap(nil, true),
		snap(&Identity{IsVerified: true}, true, ResourceFormats, ResourceAbout),
	}
	for i, s := range cases {
		got := Reconcile(s)
		if !reflect.DeepEqual(got, []Command{CmdVerifyIdentity}) {
			t.Errorf("case %d: got %v, want [VerifyIdentity]", i, got)
		}
	}
}

func TestReconcile_AgreementsGateBlocksContent(t *testing.T) {
	s := snap(&Identity{IsVerified: true}, true, ResourceUser)
	got := Reconcile(s)
	if !reflect.DeepEqual(got, []Command{CmdLoadUserAgreements}) {
		t.Errorf("got %v, want [LoadUserAgreements]", got)
	}
}

func TestReconcile_NoDuplicateDispatchWhileFetching(t *testing.T) {
	s := setFetching(snap(nil, false), ResourceUser)
	if got := Reconcile(s); got != nil {
		t.Errorf("user fetching: got %v, want none", got)
	}

	s = setFetching(snap(&Identity{IsVerified: true}, false, ResourceUser), ResourceUserAgreements)
	got := Reconcile(s)
	for _, cmd := range got {
		if cmd == CmdLoadUserAgreements {
			t.Errorf("agreements fetching but re-emitted: %v", got)
		}
	}
}

func TestReconcile_UnverifiedShortCircuit(t *testing.T) {
	blocked := map[Command]bool{
		CmdLoadFormats: true, CmdLoadAbout: true, CmdInitModels: true, CmdInitPlugins: true,
	}
	for _, id := range []*Identity{nil, {IsVerified: false}} {
		s := snap(id, true, ResourceUser, ResourceUserAgreements, ResourceAuthActions)
		for _, cmd := range Reconcile(s) {
			if blocked[cmd] {
				t.Errorf("identity %+v: content command %v emitted", id, cmd)
			}
		}
	}
}

func TestReconcile_AuthActionsFallsThrough(t *testing.T) {
	s := snap(&Identity{IsVerified: true}, false, ResourceUser, ResourceUserAgreements)
	got := Reconcile(s)
	want := []Command{CmdLoadAuthActions, CmdLoadFormats, CmdLoadAbout, CmdInitPlugins}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReconcile_ModelsOnlyWhenPluginActive(t *testing.T) {
	base := []Resource{ResourceUser, ResourceUserAgreements, ResourceAuthActions,
		ResourceFormats, ResourceAbout, ResourcePlugins}

	s := snap(&Identity{IsVerified: true}, false, base...)
	if got := Reconcile(s); got != nil {
		t.Errorf("plugin inactive: got %v, want none", got)
	}

	s = snap(&Identity{IsVerified: true}, true, base...)
	if got := Reconcile(s); !reflect.DeepEqual(got, []Command{CmdInitModels}) {
		t.Errorf("plugin active: got %v, want [InitModels]", got)
	}
}

func TestReconcile_SteadyStateEmitsNothing(t *testing.T) {
	s := snap(&Identity{IsVerified: true}, true, AllResources()...)
	if got := Reconcile(s); got != nil {
		t.Errorf("all ready: got %v, want none", got)
	}
	// Idempotency: a second pass over the same snapshot stays silent.
	if got := Reconcile(s); got != nil {
		t.Errorf("second pass: got %v, want none", got)
	}
}

func TestReady_UnverifiedNeedsOnlyUser(t *testing.T) {
	if snap(nil, true).Ready() {
		t.Error("no user resource: want not ready")
	}
	if !snap(nil, true, ResourceUser).Ready() {
		t.Error("anonymous with user initialized: want ready")
	}
	if !snap(&Identity{IsVerified: false}, true, ResourceUser).Ready() {
		t.Error("unverified with user initialized: want ready")
	}
}

func TestReady_VerifiedNeedsContent(t *testing.T) {
	id := &Identity{IsVerified: true, IsSuperuser: true}

	// Models unready while the plugin is active blocks readiness.
	s := snap(id, true, ResourceUser, ResourceUserAgreements, ResourceAuthActions,
		ResourceFormats, ResourceAbout, ResourcePlugins)
	if s.Ready() {
		t.Error("models unready with plugin active: want not ready")
	}

	s.Resources[ResourceModels] = ResourceState{Initialized: true}
	if !s.Ready() {
		t.Error("everything initialized: want ready")
	}

	// Same state without the model plugin does not need models.
	s2 := snap(id, false, ResourceUser, ResourceUserAgreements, ResourceAuthActions,
		ResourceFormats, ResourceAbout, ResourcePlugins)
	if !s2.Ready() {
		t.Error("plugin inactive: want ready without models")
	}
}

func TestCommandResource_CoversAllCommands(t *testing.T) {
	cmds := []Command{CmdVerifyIdentity, CmdLoadUserAgreements, CmdLoadAuthActions,
		CmdLoadFormats, CmdLoadAbout, CmdInitModels, CmdInitPlugins}
	for _, cmd := range cmds {
		if CommandResource(cmd) == "" {
			t.Errorf("no resource for %v", cmd)
		}
	}
}
