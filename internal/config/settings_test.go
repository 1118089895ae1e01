package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"watchify/internal/logging"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if settings.Server.Addr != "127.0.0.1:7772" {
		t.Fatalf("unexpected addr: %q", settings.Server.Addr)
	}
	if settings.Watch.Debounce() != 100*time.Millisecond {
		t.Fatalf("unexpected debounce: %s", settings.Watch.Debounce())
	}
	if settings.Events.HistorySize != 256 {
		t.Fatalf("unexpected history size: %d", settings.Events.HistorySize)
	}
	if settings.Log.ParsedLevel() != logging.LevelInfo {
		t.Fatalf("unexpected log level: %s", settings.Log.ParsedLevel())
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchify.yaml")
	payload := `
server:
  addr: "0.0.0.0:9000"
  auth_token: "secret"
  allowed_origins:
    - "https://example.test"
watch:
  debounce_ms: 250
  paths:
    - path: "/tmp/project"
      recursive: true
notify:
  strict: true
events:
  history_size: 32
log:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if settings.Server.Addr != "0.0.0.0:9000" {
		t.Fatalf("unexpected addr: %q", settings.Server.Addr)
	}
	if settings.Server.AuthToken != "secret" {
		t.Fatalf("unexpected token: %q", settings.Server.AuthToken)
	}
	if len(settings.Server.AllowedOrigins) != 1 || settings.Server.AllowedOrigins[0] != "https://example.test" {
		t.Fatalf("unexpected origins: %v", settings.Server.AllowedOrigins)
	}
	if settings.Watch.Debounce() != 250*time.Millisecond {
		t.Fatalf("unexpected debounce: %s", settings.Watch.Debounce())
	}
	if len(settings.Watch.Paths) != 1 || settings.Watch.Paths[0].Path != "/tmp/project" || !settings.Watch.Paths[0].Recursive {
		t.Fatalf("unexpected watch paths: %v", settings.Watch.Paths)
	}
	if !settings.Notify.Strict {
		t.Fatal("expected strict notify")
	}
	if settings.Events.HistorySize != 32 {
		t.Fatalf("unexpected history size: %d", settings.Events.HistorySize)
	}
	if settings.Log.ParsedLevel() != logging.LevelDebug {
		t.Fatalf("unexpected log level: %s", settings.Log.ParsedLevel())
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchify.yaml")
	if err := os.WriteFile(path, []byte("server: ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WATCHIFY_ADDR", "127.0.0.1:8111")
	t.Setenv("WATCHIFY_AUTH_TOKEN", "env-token")
	t.Setenv("WATCHIFY_ALLOWED_ORIGINS", "https://a.test, https://b.test")
	t.Setenv("WATCHIFY_DEBOUNCE_MS", "75")
	t.Setenv("WATCHIFY_NOTIFY_STRICT", "true")
	t.Setenv("WATCHIFY_LOG_LEVEL", "warning")
	t.Setenv("WATCHIFY_WATCH_PATHS", "/srv/data,/srv/logs")

	settings, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if settings.Server.Addr != "127.0.0.1:8111" {
		t.Fatalf("unexpected addr: %q", settings.Server.Addr)
	}
	if settings.Server.AuthToken != "env-token" {
		t.Fatalf("unexpected token: %q", settings.Server.AuthToken)
	}
	if len(settings.Server.AllowedOrigins) != 2 || settings.Server.AllowedOrigins[1] != "https://b.test" {
		t.Fatalf("unexpected origins: %v", settings.Server.AllowedOrigins)
	}
	if settings.Watch.DebounceMS != 75 {
		t.Fatalf("unexpected debounce: %d", settings.Watch.DebounceMS)
	}
	if !settings.Notify.Strict {
		t.Fatal("expected strict notify from env")
	}
	if settings.Log.ParsedLevel() != logging.LevelWarning {
		t.Fatalf("unexpected log level: %s", settings.Log.ParsedLevel())
	}
	if len(settings.Watch.Paths) != 2 || settings.Watch.Paths[0].Path != "/srv/data" {
		t.Fatalf("unexpected watch paths: %v", settings.Watch.Paths)
	}
}

func TestNormalizeFallsBackOnBadLevel(t *testing.T) {
	t.Setenv("WATCHIFY_LOG_LEVEL", "shouting")

	settings, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Log.Level != string(logging.LevelInfo) {
		t.Fatalf("expected fallback level, got %q", settings.Log.Level)
	}
}
