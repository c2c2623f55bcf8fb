package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/calder-vision/atrium/internal/cache"
	"github.com/calder-vision/atrium/internal/notify"
	"github.com/calder-vision/atrium/internal/plugins"
	"github.com/calder-vision/atrium/internal/shell"
	"github.com/calder-vision/atrium/internal/testutil"
)

// chanPoster forwards events to a channel for assertion.
type chanPoster struct {
	events chan shell.Event
}

func (p *chanPoster) Post(ev shell.Event) {
	p.events <- ev
}

type env struct {
	client *Client
	poster *chanPoster
	errors *notify.Queue
	msgs   *notify.Queue
	store  *cache.Store
}

func testClient(t *testing.T, backend http.Handler) *env {
	t.Helper()

	var srvURL string
	if backend != nil {
		srv := httptest.NewServer(backend)
		t.Cleanup(srv.Close)
		srvURL = srv.URL
	} else {
		// A closed server: every request fails to connect.
		srv := httptest.NewServer(http.NotFoundHandler())
		srvURL = srv.URL
		srv.Close()
	}

	registry, err := plugins.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	e := &env{
		poster: &chanPoster{events: make(chan shell.Event, 16)},
		errors: notify.NewQueue(),
		msgs:   notify.NewQueue(),
		store:  testutil.TestCache(t),
	}
	e.client = New(srvURL, 2*time.Second, e.poster, e.errors, e.msgs, e.store, registry, testutil.DiscardLogger())
	return e
}

func recvEvent(t *testing.T, e *env) shell.Event {
	t.Helper()
	select {
	case ev := <-e.poster.events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
		return shell.Event{}
	}
}

func TestVerifyIdentitySuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/self", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"username":"anna","is_verified":true,"is_superuser":false}`))
	})

	e := testClient(t, mux)
	epoch := uuid.New()
	e.client.Dispatch(context.Background(), shell.CmdVerifyIdentity, epoch)

	ev := recvEvent(t, e)
	if ev.Kind != shell.EventCompleted || ev.Resource != shell.ResourceUser {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Epoch != epoch {
		t.Error("epoch not propagated")
	}
	if ev.Identity == nil || ev.Identity.Username != "anna" || !ev.Identity.IsVerified {
		t.Errorf("identity = %+v", ev.Identity)
	}
}

func TestVerifyIdentityAnonymousIsNotAnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/self", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	e := testClient(t, mux)
	e.client.Dispatch(context.Background(), shell.CmdVerifyIdentity, uuid.New())

	ev := recvEvent(t, e)
	if ev.Kind != shell.EventCompleted {
		t.Fatalf("event = %+v, want completed", ev)
	}
	if ev.Identity != nil {
		t.Errorf("identity = %+v, want nil", ev.Identity)
	}
	if e.errors.Len() != 0 {
		t.Errorf("error notices = %d, want 0", e.errors.Len())
	}
}

func TestFetchFailureQueuesNoticeAndFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/server/formats", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	e := testClient(t, mux)
	e.client.Dispatch(context.Background(), shell.CmdLoadFormats, uuid.New())

	ev := recvEvent(t, e)
	if ev.Kind != shell.EventFailed || ev.Resource != shell.ResourceFormats {
		t.Fatalf("event = %+v, want formats failure", ev)
	}

	entries := e.errors.Drain()
	if len(entries) != 1 {
		t.Fatalf("error notices = %d, want 1", len(entries))
	}
	if entries[0].Source != "formats" || entries[0].Slot != "loadFormats" {
		t.Errorf("notice keyed (%s, %s), want (formats, loadFormats)", entries[0].Source, entries[0].Slot)
	}
	if entries[0].Notice.Detail == "" {
		t.Error("notice missing detail")
	}
}

func TestFetchSuccessWritesThroughCache(t *testing.T) {
	payload := `{"about":"annotation platform"}`
	mux := http.NewServeMux()
	mux.HandleFunc("/api/server/about", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	})

	e := testClient(t, mux)
	e.client.Dispatch(context.Background(), shell.CmdLoadAbout, uuid.New())

	ev := recvEvent(t, e)
	if ev.Kind != shell.EventCompleted || ev.Resource != shell.ResourceAbout {
		t.Fatalf("event = %+v", ev)
	}

	cached, _, err := e.store.Get("about")
	if err != nil {
		t.Fatalf("cache get: %v", err)
	}
	if string(cached) != payload {
		t.Errorf("cached payload = %q", cached)
	}
}

func TestInitPluginsReadsManifests(t *testing.T) {
	dir := testutil.TestPluginDir(t, map[string]string{
		"sam.yaml": "name: sam\nversion: \"0.3\"\nentry: sam.js\n",
	})
	registry, err := plugins.NewRegistry(dir)
	if err != nil {
		t.Fatal(err)
	}

	e := testClient(t, http.NewServeMux())
	e.client.registry = registry
	e.client.Dispatch(context.Background(), shell.CmdInitPlugins, uuid.New())

	ev := recvEvent(t, e)
	if ev.Kind != shell.EventCompleted || ev.Resource != shell.ResourcePlugins {
		t.Fatalf("event = %+v", ev)
	}
}

func TestCheckBackendUnreachableQueuesMessage(t *testing.T) {
	e := testClient(t, nil)
	e.client.CheckBackend(context.Background())

	entries := e.msgs.Drain()
	if len(entries) != 1 {
		t.Fatalf("messages = %d, want 1", len(entries))
	}
	if entries[0].Source != "platform" {
		t.Errorf("source = %q, want platform", entries[0].Source)
	}
}
