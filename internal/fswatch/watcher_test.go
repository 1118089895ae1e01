package fswatch

import (
	"os"
	"testing"
	"time"
)

func TestWatcherDispatchesWriteChange(t *testing.T) {
	watcher, err := New()
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	file, err := os.CreateTemp("", "watchify-fswatch-*")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := file.Name()
	if err := file.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Remove(path)
	})

	changes := make(chan Change, 1)
	handle, err := watcher.Watch(path, func(change Change) {
		select {
		case changes <- change:
		default:
		}
	})
	if err != nil {
		t.Fatalf("watch path: %v", err)
	}
	defer handle.Close()

	if err := os.WriteFile(path, []byte("update"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	change, ok := waitForChange(changes)
	if !ok {
		t.Fatal("timed out waiting for write change")
	}
	if change.Path != path {
		t.Fatalf("expected path %q, got %q", path, change.Path)
	}
}

func TestWatcherDispatchesRemoveChange(t *testing.T) {
	watcher, err := New()
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	file, err := os.CreateTemp("", "watchify-fswatch-remove-*")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := file.Name()
	if err := file.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}

	changes := make(chan Change, 1)
	handle, err := watcher.Watch(path, func(change Change) {
		select {
		case changes <- change:
		default:
		}
	})
	if err != nil {
		t.Fatalf("watch path: %v", err)
	}
	defer handle.Close()

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	change, ok := waitForChange(changes)
	if !ok {
		t.Fatal("timed out waiting for remove change")
	}
	if change.Path != path {
		t.Fatalf("expected path %q, got %q", path, change.Path)
	}
}

func TestWatcherEnforcesWatchBudget(t *testing.T) {
	watcher, err := NewWithOptions(Options{MaxWatches: 1})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	first := t.TempDir()
	second := t.TempDir()

	handle, err := watcher.Watch(first, func(Change) {})
	if err != nil {
		t.Fatalf("watch first: %v", err)
	}
	defer handle.Close()

	if _, err := watcher.Watch(second, func(Change) {}); err != ErrMaxWatchesExceeded {
		t.Fatalf("expected ErrMaxWatchesExceeded, got %v", err)
	}
}

func TestWatcherStats(t *testing.T) {
	watcher, err := New()
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	handle, err := watcher.Watch(t.TempDir(), func(Change) {})
	if err != nil {
		t.Fatalf("watch dir: %v", err)
	}
	defer handle.Close()

	stats := watcher.Stats()
	if stats.ActiveWatches != 1 {
		t.Fatalf("expected 1 active watch, got %d", stats.ActiveWatches)
	}
}

func TestSweepStaleReclaimsEmptyRegistrations(t *testing.T) {
	watcher, err := New()
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	dir := t.TempDir()
	watcher.mutex.Lock()
	watcher.callbacks[dir] = nil
	watcher.activeWatches = 1
	watcher.mutex.Unlock()

	watcher.sweepStale()

	watcher.mutex.Lock()
	_, present := watcher.callbacks[dir]
	active := watcher.activeWatches
	watcher.mutex.Unlock()
	if present {
		t.Fatal("expected empty registration removed")
	}
	if active != 0 {
		t.Fatalf("expected watch slot reclaimed, got %d", active)
	}
}

func waitForChange(changes <-chan Change) (Change, bool) {
	select {
	case change := <-changes:
		return change, true
	case <-time.After(2 * time.Second):
		return Change{}, false
	}
}
