package config

import (
	"errors"

	"watchify/internal/event"
	"watchify/internal/fswatch"
)

// WatchFile registers a filesystem watch on the settings file and publishes a
// config_changed event on the config bus whenever it changes.
func WatchFile(watcher fswatch.Watch, path string) (fswatch.Handle, error) {
	if watcher == nil {
		return nil, errors.New("watcher is nil")
	}
	if path == "" {
		return nil, errors.New("path is required")
	}

	return watcher.Watch(path, func(change fswatch.Change) {
		bus.Publish(event.NewConfigEvent(change.Path, "changed"))
	})
}
