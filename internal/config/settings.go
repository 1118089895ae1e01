package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"watchify/internal/logging"
)

// Settings is the full watchify configuration, loaded from watchify.yaml with
// WATCHIFY_* environment overrides on top.
type Settings struct {
	Server ServerSettings `yaml:"server"`
	Watch  WatchSettings  `yaml:"watch"`
	Notify NotifySettings `yaml:"notify"`
	Events EventSettings  `yaml:"events"`
	Log    LogSettings    `yaml:"log"`
}

type ServerSettings struct {
	Addr           string   `yaml:"addr"`
	AuthToken      string   `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type WatchSettings struct {
	Paths      []WatchPath `yaml:"paths"`
	DebounceMS int         `yaml:"debounce_ms"`
	MaxWatches int         `yaml:"max_watches"`
}

type WatchPath struct {
	Path      string `yaml:"path"`
	Recursive bool   `yaml:"recursive"`
}

type NotifySettings struct {
	Strict bool `yaml:"strict"`
}

type EventSettings struct {
	HistorySize int `yaml:"history_size"`
}

type LogSettings struct {
	Level string `yaml:"level"`
}

// Default returns the settings used when no file and no overrides are present.
func Default() Settings {
	return Settings{
		Server: ServerSettings{
			Addr: "127.0.0.1:7772",
		},
		Watch: WatchSettings{
			DebounceMS: 100,
			MaxWatches: 100,
		},
		Events: EventSettings{
			HistorySize: 256,
		},
		Log: LogSettings{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load reads settings from path (missing file is fine) and applies environment
// overrides. An unreadable or malformed file is an error.
func Load(path string) (Settings, error) {
	settings := Default()

	if strings.TrimSpace(path) != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Settings{}, err
			}
		} else if err := yaml.Unmarshal(payload, &settings); err != nil {
			return Settings{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&settings)
	return normalize(settings), nil
}

// Debounce converts the configured debounce to a duration.
func (s WatchSettings) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// Level parses the configured log level, falling back to info.
func (s LogSettings) ParsedLevel() logging.Level {
	if level, ok := logging.ParseLevel(s.Level); ok {
		return level
	}
	return logging.LevelInfo
}

func applyEnv(settings *Settings) {
	if value := strings.TrimSpace(os.Getenv("WATCHIFY_ADDR")); value != "" {
		settings.Server.Addr = value
	}
	if value := os.Getenv("WATCHIFY_AUTH_TOKEN"); value != "" {
		settings.Server.AuthToken = value
	}
	if value := strings.TrimSpace(os.Getenv("WATCHIFY_ALLOWED_ORIGINS")); value != "" {
		origins := []string{}
		for _, origin := range strings.Split(value, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				origins = append(origins, origin)
			}
		}
		settings.Server.AllowedOrigins = origins
	}
	if value, ok := envInt("WATCHIFY_DEBOUNCE_MS"); ok {
		settings.Watch.DebounceMS = value
	}
	if value, ok := envInt("WATCHIFY_MAX_WATCHES"); ok {
		settings.Watch.MaxWatches = value
	}
	if value, ok := envInt("WATCHIFY_HISTORY_SIZE"); ok {
		settings.Events.HistorySize = value
	}
	if value, ok := envBool("WATCHIFY_NOTIFY_STRICT"); ok {
		settings.Notify.Strict = value
	}
	if value := strings.TrimSpace(os.Getenv("WATCHIFY_LOG_LEVEL")); value != "" {
		settings.Log.Level = value
	}
	if value := strings.TrimSpace(os.Getenv("WATCHIFY_WATCH_PATHS")); value != "" {
		paths := []WatchPath{}
		for _, path := range strings.Split(value, ",") {
			path = strings.TrimSpace(path)
			if path != "" {
				paths = append(paths, WatchPath{Path: path})
			}
		}
		settings.Watch.Paths = paths
	}
}

func envInt(name string) (int, bool) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func envBool(name string) (bool, bool) {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

func normalize(settings Settings) Settings {
	defaults := Default()
	if strings.TrimSpace(settings.Server.Addr) == "" {
		settings.Server.Addr = defaults.Server.Addr
	}
	if settings.Watch.DebounceMS <= 0 {
		settings.Watch.DebounceMS = defaults.Watch.DebounceMS
	}
	if settings.Watch.MaxWatches <= 0 {
		settings.Watch.MaxWatches = defaults.Watch.MaxWatches
	}
	if settings.Events.HistorySize <= 0 {
		settings.Events.HistorySize = defaults.Events.HistorySize
	}
	if _, ok := logging.ParseLevel(settings.Log.Level); !ok {
		settings.Log.Level = defaults.Log.Level
	}
	return settings
}
