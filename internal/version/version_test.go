package version

import "testing"

func TestGet(t *testing.T) {
	previousVersion := Version
	previousBuilt := Built
	previousCommit := GitCommit

	Version = "1.2.3"
	Built = "2026-08-25T12:34:56Z"
	GitCommit = "abc123"

	t.Cleanup(func() {
		Version = previousVersion
		Built = previousBuilt
		GitCommit = previousCommit
	})

	info := Get()
	if info.Version != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", info.Version)
	}
	if info.Built != "2026-08-25T12:34:56Z" {
		t.Fatalf("expected built timestamp to be preserved, got %q", info.Built)
	}
	if info.GitCommit != "abc123" {
		t.Fatalf("expected git commit to be preserved, got %q", info.GitCommit)
	}

	summary := info.Summary()
	expected := "watchify 1.2.3 (abc123) built 2026-08-25T12:34:56Z"
	if summary != expected {
		t.Fatalf("expected %q, got %q", expected, summary)
	}
}

func TestSummaryOmitsEmptyFields(t *testing.T) {
	info := Info{Version: "dev"}
	if got := info.Summary(); got != "watchify dev" {
		t.Fatalf("expected bare summary, got %q", got)
	}
}
