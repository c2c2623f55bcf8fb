package plugins

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSortedManifests(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "b.yaml", "name: beta\nversion: \"2.0\"\nentry: beta.js\n")
	writeManifest(t, dir, "a.yaml", "name: alpha\nversion: \"1.0\"\nentry: alpha.js\n")
	writeManifest(t, dir, "notes.txt", "ignored")

	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	manifests, err := r.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(manifests) != 2 {
		t.Fatalf("loaded %d manifests, want 2", len(manifests))
	}
	if manifests[0].Name != "alpha" || manifests[1].Name != "beta" {
		t.Errorf("order = %s, %s", manifests[0].Name, manifests[1].Name)
	}
}

func TestLoadEmptyDir(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	manifests, err := r.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(manifests) != 0 {
		t.Errorf("loaded %d manifests, want 0", len(manifests))
	}
}

func TestLoadFailsOnMalformedManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "good.yaml", "name: good\nentry: good.js\n")
	writeManifest(t, dir, "bad.yaml", "name: bad\n") // missing entry

	r, _ := NewRegistry(dir)
	if _, err := r.Load(); err == nil {
		t.Error("expected error for manifest without entry")
	}
}

func TestNewRegistryCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "plugins")
	if _, err := NewRegistry(dir); err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("dir not created: %v", err)
	}
}

func TestWatchFiresOnManifestChange(t *testing.T) {
	dir := t.TempDir()
	r, _ := NewRegistry(dir)

	changed := make(chan struct{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		_ = r.Watch(ctx, logger, func() { changed <- struct{}{} })
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeManifest(t, dir, "new.yaml", "name: new\nentry: new.js\n")

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for watcher callback")
	}

	cancel()
	<-done
}
