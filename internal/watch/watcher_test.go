package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, root string) (<-chan Event, context.CancelFunc) {
	t.Helper()
	events := make(chan Event, 64)
	w, err := New(Config{
		Root:    root,
		OnEvent: func(e Event) { events <- e },
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("watcher run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("watcher did not stop")
		}
	})

	// Give the event loop a moment to start draining.
	time.Sleep(50 * time.Millisecond)
	return events, cancel
}

func waitForEvent(t *testing.T, events <-chan Event, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			if match(e) {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event")
		}
	}
}

func TestWatcherDeliversManifestEvents(t *testing.T) {
	root := t.TempDir()
	events, _ := startWatcher(t, root)

	manifest := filepath.Join(root, "go.mod")
	if err := os.WriteFile(manifest, []byte("module example.com/app\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	e := waitForEvent(t, events, func(e Event) bool { return e.Path == manifest && !e.Removed })
	if e.Path != manifest {
		t.Fatalf("unexpected event path %q", e.Path)
	}
}

func TestWatcherIgnoresNonManifestAndVendorPaths(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "vendor", "dep"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	events, _ := startWatcher(t, root)

	if err := os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "vendor", "dep", "go.mod"), []byte("module dep\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	manifest := filepath.Join(root, "go.mod")
	if err := os.WriteFile(manifest, []byte("module example.com/app\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The first manifest event observed must be the workspace one;
	// nothing from vendor/ or the .go file may precede it.
	e := waitForEvent(t, events, func(e Event) bool { return filepath.Base(e.Path) == "go.mod" })
	if e.Path != manifest {
		t.Fatalf("unexpected first manifest event: %q", e.Path)
	}
}

func TestWatcherReportsRemoval(t *testing.T) {
	root := t.TempDir()
	manifest := filepath.Join(root, "go.mod")
	if err := os.WriteFile(manifest, []byte("module example.com/app\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	events, _ := startWatcher(t, root)

	if err := os.Remove(manifest); err != nil {
		t.Fatalf("remove: %v", err)
	}
	waitForEvent(t, events, func(e Event) bool { return e.Path == manifest && e.Removed })
}

func TestWatcherCoversDirectoriesCreatedAfterStartup(t *testing.T) {
	root := t.TempDir()
	events, _ := startWatcher(t, root)

	sub := filepath.Join(root, "services", "api")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Creation of the intermediate directory must be picked up before
	// the manifest write lands.
	time.Sleep(200 * time.Millisecond)

	manifest := filepath.Join(sub, "go.mod")
	if err := os.WriteFile(manifest, []byte("module example.com/api\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitForEvent(t, events, func(e Event) bool { return e.Path == manifest })
}

func TestWatcherRunTwiceFails(t *testing.T) {
	w, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	if err := w.Run(ctx); err == nil {
		t.Fatalf("second Run must fail")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("first Run: %v", err)
	}
}
