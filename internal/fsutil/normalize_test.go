package fsutil

import (
	"path/filepath"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	got, err := NormalizePath("/tmp/../tmp/a.txt")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != filepath.Clean("/tmp/a.txt") {
		t.Fatalf("expected /tmp/a.txt, got %q", got)
	}
}

func TestNormalizePathRelative(t *testing.T) {
	got, err := NormalizePath("subdir/file.txt")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("expected absolute path, got %q", got)
	}
}

func TestNormalizePathEmpty(t *testing.T) {
	if _, err := NormalizePath("   "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNormalizePathsDedupes(t *testing.T) {
	got, err := NormalizePaths("/tmp/a", "/tmp/b/../a", "/tmp/b")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 unique paths, got %v", got)
	}
	if got[0] != filepath.Clean("/tmp/a") || got[1] != filepath.Clean("/tmp/b") {
		t.Fatalf("expected order preserved, got %v", got)
	}
}

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	if !IsDir(dir) {
		t.Fatalf("expected %q to be a directory", dir)
	}
	if IsDir(filepath.Join(dir, "missing")) {
		t.Fatal("expected missing path to report false")
	}
}
