package fswatch

import (
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

type debounceEntry struct {
	timer  *time.Timer
	change Change
}

type debouncer struct {
	duration time.Duration
	entries  map[string]debounceEntry
}

func newDebouncer(duration time.Duration) *debouncer {
	return &debouncer{
		duration: duration,
		entries:  make(map[string]debounceEntry),
	}
}

func (debouncer *debouncer) schedule(path string, change Change, flush func(string)) bool {
	if debouncer == nil {
		return false
	}
	entry := debouncer.entries[path]
	dropped := entry.timer != nil
	entry.change = change
	if entry.timer == nil {
		entry.timer = time.AfterFunc(debouncer.duration, func() {
			flush(path)
		})
	} else {
		entry.timer.Reset(debouncer.duration)
	}
	debouncer.entries[path] = entry
	return dropped
}

func (debouncer *debouncer) pop(path string) (Change, bool) {
	if debouncer == nil {
		return Change{}, false
	}
	entry, ok := debouncer.entries[path]
	if !ok {
		return Change{}, false
	}
	delete(debouncer.entries, path)
	return entry.change, true
}

func (debouncer *debouncer) stop() {
	if debouncer == nil {
		return
	}
	for _, entry := range debouncer.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	debouncer.entries = nil
}

func (watcher *Watcher) handleChange(raw fsnotify.Event) {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return
	}
	if !watcher.hasCallbacksLocked(raw.Name) {
		watcher.mutex.Unlock()
		return
	}

	change := Change{
		Path:      raw.Name,
		Op:        raw.Op,
		Timestamp: time.Now().UTC(),
	}
	if watcher.debouncer != nil {
		dropped := watcher.debouncer.schedule(raw.Name, change, watcher.flush)
		if dropped {
			atomic.AddUint64(&watcher.changesDropped, 1)
		}
	}
	watcher.mutex.Unlock()
}

func (watcher *Watcher) flush(path string) {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return
	}
	if watcher.debouncer == nil {
		watcher.mutex.Unlock()
		return
	}
	change, ok := watcher.debouncer.pop(path)
	if !ok {
		watcher.mutex.Unlock()
		return
	}
	callbacks := watcher.callbacksForPathLocked(path)
	watcher.mutex.Unlock()

	for _, callback := range callbacks {
		callback(change)
		atomic.AddUint64(&watcher.changesDelivered, 1)
	}
}
