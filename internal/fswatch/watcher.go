package fswatch

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"watchify/internal/logging"
	"watchify/internal/metrics"
)

const (
	defaultDebounce        = 100 * time.Millisecond
	defaultMaxWatches      = 100
	defaultCleanupInterval = time.Minute
	maxRestartAttempts     = 3
	restartBaseDelay       = 200 * time.Millisecond
)

var ErrMaxWatchesExceeded = errors.New("max watches exceeded")

// New creates a Watcher with default options.
func New() (*Watcher, error) {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a Watcher with custom options.
func NewWithOptions(options Options) (*Watcher, error) {
	source, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), logging.LevelInfo, nil)
	}

	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}

	debounce := options.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	maxWatches := options.MaxWatches
	if maxWatches <= 0 {
		maxWatches = defaultMaxWatches
	}

	cleanupInterval := options.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}

	instance := &Watcher{
		watcher:          source,
		callbacks:        make(map[string][]callbackEntry),
		debouncer:        newDebouncer(debounce),
		changes:          make(chan fsnotify.Event, 16),
		errors:           make(chan error, 4),
		done:             make(chan struct{}),
		logger:           logger,
		registry:         registry,
		watchRecursive:   options.WatchRecursive,
		maxWatches:       maxWatches,
		cleanupInterval:  cleanupInterval,
		errorHandler:     options.ErrorHandler,
		recursiveWatches: make(map[string]int),
	}

	instance.startForwarder(source)
	go instance.run()
	go instance.janitor()
	return instance, nil
}

// janitor periodically sweeps registrations whose callbacks are all gone,
// returning their slots to the watch budget.
func (watcher *Watcher) janitor() {
	ticker := time.NewTicker(watcher.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			watcher.sweepStale()
		case <-watcher.done:
			return
		}
	}
}

func (watcher *Watcher) sweepStale() {
	if watcher == nil {
		return
	}

	var stale []string
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return
	}
	for path, callbacks := range watcher.callbacks {
		if len(callbacks) > 0 {
			continue
		}
		delete(watcher.callbacks, path)
		if watcher.recursiveWatches[path] > 0 {
			continue
		}
		if watcher.activeWatches > 0 {
			watcher.activeWatches--
		}
		stale = append(stale, path)
	}
	activeCount := watcher.activeWatches
	source := watcher.watcher
	watcher.mutex.Unlock()

	if source == nil {
		return
	}
	for _, path := range stale {
		if err := source.Remove(path); err != nil {
			watcher.logWarn("watch cleanup failed", map[string]string{
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		watcher.logDebug("watch cleaned", path, activeCount)
	}
}

// Close shuts down the watcher and stops change processing.
func (watcher *Watcher) Close() error {
	if watcher == nil {
		return nil
	}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil
	}
	watcher.closed = true
	if watcher.debouncer != nil {
		watcher.debouncer.stop()
		watcher.debouncer = nil
	}
	watcher.mutex.Unlock()

	close(watcher.done)
	if watcher.watcher == nil {
		return nil
	}
	return watcher.watcher.Close()
}

func (watcher *Watcher) run() {
	for {
		select {
		case change := <-watcher.changes:
			watcher.handleChange(change)
		case err := <-watcher.errors:
			watcher.handleError(err)
		case <-watcher.done:
			return
		}
	}
}

func (watcher *Watcher) startForwarder(source *fsnotify.Watcher) {
	if source == nil {
		return
	}

	go func() {
		for {
			select {
			case change, ok := <-source.Events:
				if !ok {
					return
				}
				select {
				case watcher.changes <- change:
				case <-watcher.done:
					return
				}
			case err, ok := <-source.Errors:
				if !ok {
					return
				}
				select {
				case watcher.errors <- err:
				case <-watcher.done:
					return
				}
			case <-watcher.done:
				return
			}
		}
	}()
}

// SetErrorHandler configures a callback for unrecoverable watcher failures.
func (watcher *Watcher) SetErrorHandler(handler func(error)) {
	if watcher == nil {
		return
	}
	watcher.mutex.Lock()
	watcher.errorHandler = handler
	watcher.mutex.Unlock()
}

func (watcher *Watcher) logWarn(message string, fields map[string]string) {
	if watcher == nil || watcher.logger == nil {
		return
	}
	watcher.logger.Warn(message, withWatchFields(fields))
}

func (watcher *Watcher) logDebug(message, path string, activeCount int) {
	if watcher == nil || watcher.logger == nil {
		return
	}
	fields := map[string]string{
		"path":           path,
		"active_watches": strconv.Itoa(activeCount),
	}
	watcher.logger.Debug(message, withWatchFields(fields))
}

func withWatchFields(fields map[string]string) map[string]string {
	merged := make(map[string]string, 2)
	merged["watchify.category"] = "fswatch"
	merged["watchify.source"] = "backend"
	for key, value := range fields {
		merged[key] = value
	}
	return merged
}

// Stats reports current watcher counters.
func (watcher *Watcher) Stats() Stats {
	if watcher == nil {
		return Stats{}
	}
	watcher.mutex.Lock()
	active := watcher.activeWatches
	watcher.mutex.Unlock()
	watcher.restartMutex.Lock()
	restartAttempts := watcher.restartAttempts
	watcher.restartMutex.Unlock()
	return Stats{
		ActiveWatches:    active,
		ChangesDelivered: atomic.LoadUint64(&watcher.changesDelivered),
		ChangesDropped:   atomic.LoadUint64(&watcher.changesDropped),
		Errors:           atomic.LoadUint64(&watcher.errorCount),
		RestartAttempts:  restartAttempts,
	}
}
