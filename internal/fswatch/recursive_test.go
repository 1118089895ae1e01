package fswatch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWatcherRecursiveWatchDispatchesNestedChange(t *testing.T) {
	watcher, err := NewWithOptions(Options{WatchRecursive: true})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	dir := t.TempDir()
	nestedDir := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nestedDir, 0o755); err != nil {
		t.Fatalf("create nested dir: %v", err)
	}

	changes := make(chan Change, 1)
	handle, err := watcher.Watch(dir, func(change Change) {
		select {
		case changes <- change:
		default:
		}
	})
	if err != nil {
		t.Fatalf("watch dir: %v", err)
	}
	defer handle.Close()

	filePath := filepath.Join(nestedDir, "sample.txt")
	if err := os.WriteFile(filePath, []byte("data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	change, ok := waitForChange(changes)
	if !ok {
		t.Fatal("timed out waiting for recursive change")
	}
	if change.Path != filePath {
		t.Fatalf("expected path %q, got %q", filePath, change.Path)
	}
}

func TestRetainDirCountsReferences(t *testing.T) {
	watcher, err := NewWithOptions(Options{WatchRecursive: true})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	dir := t.TempDir()
	if err := watcher.retainDir(dir); err != nil {
		t.Fatalf("first retain: %v", err)
	}
	if err := watcher.retainDir(dir); err != nil {
		t.Fatalf("second retain: %v", err)
	}
	if stats := watcher.Stats(); stats.ActiveWatches != 1 {
		t.Fatalf("expected shared watch to count once, got %d", stats.ActiveWatches)
	}

	watcher.releaseDir(dir)
	if stats := watcher.Stats(); stats.ActiveWatches != 1 {
		t.Fatalf("expected watch retained while references remain, got %d", stats.ActiveWatches)
	}

	watcher.releaseDir(dir)
	if stats := watcher.Stats(); stats.ActiveWatches != 0 {
		t.Fatalf("expected last release to drop the watch, got %d", stats.ActiveWatches)
	}
}

func TestWatchSubtreeRespectsBudget(t *testing.T) {
	watcher, err := NewWithOptions(Options{WatchRecursive: true, MaxWatches: 2})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatalf("create subdir: %v", err)
		}
	}

	if err := watcher.watchSubtree(dir); err != ErrMaxWatchesExceeded {
		t.Fatalf("expected ErrMaxWatchesExceeded, got %v", err)
	}
	if stats := watcher.Stats(); stats.ActiveWatches != 0 {
		t.Fatalf("expected partial subtree rolled back, got %d active watches", stats.ActiveWatches)
	}
}

func TestIsWithinPath(t *testing.T) {
	cases := []struct {
		parent string
		child  string
		within bool
	}{
		{parent: "/a", child: "/a/b", within: true},
		{parent: "/a", child: "/a", within: true},
		{parent: "/a", child: "/ab", within: false},
		{parent: "/a/b", child: "/a", within: false},
	}

	for _, testCase := range cases {
		if got := isWithinPath(testCase.parent, testCase.child); got != testCase.within {
			t.Fatalf("isWithinPath(%q, %q): expected %v, got %v", testCase.parent, testCase.child, testCase.within, got)
		}
	}
}
