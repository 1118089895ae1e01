package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoggerWritesFormattedOutput(t *testing.T) {
	var output bytes.Buffer
	logger := NewLoggerWithOutput(NewLogBuffer(10), LevelDebug, &output)

	logger.Info("watch added", map[string]string{
		"path": "/tmp/demo",
	})

	line := output.String()
	if !strings.Contains(line, "level=info") {
		t.Fatalf("expected level field, got %q", line)
	}
	if !strings.Contains(line, `msg="watch added"`) {
		t.Fatalf("expected message field, got %q", line)
	}
	if !strings.Contains(line, `path="/tmp/demo"`) {
		t.Fatalf("expected path field, got %q", line)
	}
}

func TestLoggerRespectsMinLevel(t *testing.T) {
	var output bytes.Buffer
	logger := NewLoggerWithOutput(NewLogBuffer(10), LevelWarning, &output)

	logger.Debug("dropped", nil)
	logger.Info("dropped too", nil)
	if output.Len() != 0 {
		t.Fatalf("expected no output below min level, got %q", output.String())
	}

	logger.Warn("kept", nil)
	if !strings.Contains(output.String(), "level=warning") {
		t.Fatalf("expected warning entry, got %q", output.String())
	}
}

func TestLoggerBuffersEntries(t *testing.T) {
	buffer := NewLogBuffer(2)
	logger := NewLoggerWithOutput(buffer, LevelDebug, nil)

	logger.Info("one", nil)
	logger.Info("two", nil)
	logger.Info("three", nil)

	entries := buffer.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 buffered entries, got %d", len(entries))
	}
	if entries[0].Message != "two" || entries[1].Message != "three" {
		t.Fatalf("expected oldest entries evicted, got %v", entries)
	}
}

func TestLoggerWithAddsBaseFields(t *testing.T) {
	buffer := NewLogBuffer(4)
	logger := NewLoggerWithOutput(buffer, LevelDebug, nil).With(map[string]string{
		"watchify.category": "fswatch",
	})

	logger.Info("hello", map[string]string{"extra": "1"})

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	context := entries[0].Context
	if context["watchify.category"] != "fswatch" {
		t.Fatalf("expected base field, got %v", context)
	}
	if context["extra"] != "1" {
		t.Fatalf("expected extra field, got %v", context)
	}
}

func TestLoggerSubscribeReceivesEntries(t *testing.T) {
	logger := NewLoggerWithOutput(NewLogBuffer(4), LevelDebug, nil)
	entries, cancel := logger.Subscribe()
	defer cancel()

	logger.Info("published", nil)

	select {
	case entry := <-entries:
		if entry.Message != "published" {
			t.Fatalf("expected published entry, got %q", entry.Message)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for log entry")
	}
}

func TestLoggerStreamsFanOut(t *testing.T) {
	logger := NewLoggerWithOutput(NewLogBuffer(4), LevelDebug, nil)
	first, cancelFirst := logger.Subscribe()
	second, cancelSecond := logger.Subscribe()
	defer cancelFirst()
	defer cancelSecond()

	logger.Info("fanout", nil)

	for _, ch := range []<-chan LogEntry{first, second} {
		select {
		case entry := <-ch:
			if entry.Message != "fanout" {
				t.Fatalf("expected fanout entry, got %q", entry.Message)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timed out waiting for stream entry")
		}
	}
}

func TestLoggerSubscribeCancelClosesChannel(t *testing.T) {
	logger := NewLoggerWithOutput(NewLogBuffer(4), LevelDebug, nil)
	ch, cancel := logger.Subscribe()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after cancel")
	}

	logger.Info("after cancel", nil)
}

func TestLoggerChildSharesStreams(t *testing.T) {
	logger := NewLoggerWithOutput(NewLogBuffer(4), LevelDebug, nil)
	ch, cancel := logger.Subscribe()
	defer cancel()

	child := logger.With(map[string]string{"watchify.category": "fswatch"})
	child.Info("from child", nil)

	select {
	case entry := <-ch:
		if entry.Context["watchify.category"] != "fswatch" {
			t.Fatalf("expected child base field, got %v", entry.Context)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for child entry")
	}
}

func TestFormatEntrySortsFields(t *testing.T) {
	line := formatEntry(LogEntry{
		Level:   LevelInfo,
		Message: "sorted",
		Context: map[string]string{"zebra": "1", "alpha": "2"},
	})
	if !strings.Contains(line, `alpha="2" zebra="1"`) {
		t.Fatalf("expected sorted field keys, got %q", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		level Level
		ok    bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"warn", LevelWarning, true},
		{" warning ", LevelWarning, true},
		{"error", LevelError, true},
		{"fatal", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		level, ok := ParseLevel(tc.input)
		if ok != tc.ok || level != tc.level {
			t.Fatalf("ParseLevel(%q) = %q, %v; want %q, %v", tc.input, level, ok, tc.level, tc.ok)
		}
	}
}

func TestLevelAtLeast(t *testing.T) {
	if !LevelAtLeast(LevelError, LevelWarning) {
		t.Fatal("error should satisfy warning floor")
	}
	if LevelAtLeast(LevelDebug, LevelInfo) {
		t.Fatal("debug should not satisfy info floor")
	}
	if !LevelAtLeast(LevelDebug, "") {
		t.Fatal("empty floor should allow everything")
	}
}
