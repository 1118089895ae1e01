package main

import (
	"strings"
	"sync"
	"time"

	"watchify/internal/config"
	"watchify/internal/event"
	"watchify/internal/fswatch"
	"watchify/internal/fsutil"
	"watchify/internal/logging"
)

func establishWatches(hub *fswatch.EventHub, logger *logging.Logger, paths []config.WatchPath) {
	if hub == nil {
		return
	}
	for _, watchPath := range paths {
		normalized, err := fsutil.NormalizePath(watchPath.Path)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping watch path", map[string]string{
					"path":  watchPath.Path,
					"error": err.Error(),
				})
			}
			continue
		}
		watchPathWithRetry(hub, logger, normalized)
	}
}

// watchPathWithRetry establishes a watch, retrying with backoff on failure and
// re-establishing it when the watched path is removed or renamed.
func watchPathWithRetry(hub *fswatch.EventHub, logger *logging.Logger, path string) {
	if hub == nil || path == "" {
		return
	}

	var retryMutex sync.Mutex
	retrying := false

	startWatch := func() error {
		return hub.WatchPath(path)
	}

	startRetry := func() {
		retryMutex.Lock()
		if retrying {
			retryMutex.Unlock()
			return
		}
		retrying = true
		retryMutex.Unlock()

		go func() {
			defer func() {
				retryMutex.Lock()
				retrying = false
				retryMutex.Unlock()
			}()
			backoff := 100 * time.Millisecond
			for {
				err := startWatch()
				if err == nil {
					if logger != nil {
						logger.Info("watching path", map[string]string{
							"path": path,
						})
					}
					return
				}
				if logger != nil {
					logger.Warn("watch retry failed", map[string]string{
						"path":  path,
						"error": err.Error(),
					})
				}
				time.Sleep(backoff)
				if backoff < 2*time.Second {
					backoff *= 2
				}
			}
		}()
	}

	if err := startWatch(); err != nil {
		if logger != nil {
			logger.Warn("watch failed", map[string]string{
				"path":  path,
				"error": err.Error(),
			})
		}
		startRetry()
	} else if logger != nil {
		logger.Info("watching path", map[string]string{
			"path": path,
		})
	}

	events, _ := hub.Bus().SubscribeFiltered(func(received event.Event) bool {
		fileEvent, ok := received.(event.FileEvent)
		return ok && fileEvent.Path == path
	})
	go func() {
		for received := range events {
			fileEvent, ok := received.(event.FileEvent)
			if !ok {
				continue
			}
			if !strings.Contains(fileEvent.Operation, "REMOVE") && !strings.Contains(fileEvent.Operation, "RENAME") {
				continue
			}
			_ = hub.UnwatchPath(path)
			startRetry()
		}
	}()
}
