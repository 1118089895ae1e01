package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"watchify/internal/event"
	"watchify/internal/fswatch"
)

func TestWatchFilePublishesConfigChanged(t *testing.T) {
	watcher, err := fswatch.New()
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	path := filepath.Join(t.TempDir(), "watchify.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	events, unsubscribe := Bus().SubscribeType("config_changed")
	defer unsubscribe()

	handle, err := WatchFile(watcher, path)
	if err != nil {
		t.Fatalf("watch file: %v", err)
	}
	defer handle.Close()

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case received := <-events:
		if received.Path != path {
			t.Fatalf("expected path %q, got %q", path, received.Path)
		}
		if received.ChangeType != "changed" {
			t.Fatalf("expected change type changed, got %q", received.ChangeType)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config event")
	}
}

func TestWatchFileValidatesArguments(t *testing.T) {
	if _, err := WatchFile(nil, "watchify.yaml"); err == nil {
		t.Fatal("expected error for nil watcher")
	}

	watcher, err := fswatch.New()
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	if _, err := WatchFile(watcher, ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestBusIsShared(t *testing.T) {
	if Bus() == nil {
		t.Fatal("expected shared config bus")
	}
	var _ *event.Bus[event.ConfigEvent] = Bus()
}
