package fswatch

import (
	"io/fs"
	"path/filepath"
)

// watchSubtree registers fsnotify watches for every directory below root.
// Directories are reference-counted so overlapping subtrees share a single
// OS watch. If any directory fails, the ones already taken are released
// again; the subtree ends up fully watched or not at all.
func (watcher *Watcher) watchSubtree(root string) error {
	if watcher == nil || !watcher.watchRecursive {
		return nil
	}

	var retained []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil || !entry.IsDir() || path == root {
			return nil
		}
		if err := watcher.retainDir(path); err != nil {
			return err
		}
		retained = append(retained, path)
		return nil
	})
	if err != nil {
		watcher.releaseDirs(retained)
		return err
	}
	return nil
}

// retainDir takes a reference on a recursively watched directory. The first
// reference registers the path with fsnotify and counts against the watch
// budget unless a callback registration already covers it.
func (watcher *Watcher) retainDir(path string) error {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil
	}
	first := watcher.recursiveWatches[path] == 0 && len(watcher.callbacks[path]) == 0
	if first && watcher.activeWatches >= watcher.maxWatches {
		watcher.mutex.Unlock()
		return ErrMaxWatchesExceeded
	}
	watcher.recursiveWatches[path]++
	if !first {
		watcher.mutex.Unlock()
		return nil
	}
	watcher.activeWatches++
	activeCount := watcher.activeWatches
	source := watcher.watcher
	watcher.mutex.Unlock()

	if source == nil {
		watcher.releaseRef(path)
		return nil
	}
	if err := source.Add(path); err != nil {
		watcher.releaseRef(path)
		watcher.logWarn("watch add failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		return err
	}
	watcher.logDebug("watch added", path, activeCount)
	return nil
}

func (watcher *Watcher) releaseDirs(paths []string) {
	if watcher == nil {
		return
	}
	for _, path := range paths {
		watcher.releaseDir(path)
	}
}

// releaseDir drops a reference; the last reference removes the fsnotify
// watch unless a callback registration still needs the path.
func (watcher *Watcher) releaseDir(path string) {
	if watcher == nil {
		return
	}
	removed, activeCount := watcher.releaseRef(path)
	if !removed || watcher.watcher == nil {
		return
	}
	if err := watcher.watcher.Remove(path); err != nil {
		watcher.logWarn("watch remove failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		return
	}
	watcher.logDebug("watch removed", path, activeCount)
}

// releaseRef decrements the reference count and reports whether the caller
// should drop the OS-level watch for the path.
func (watcher *Watcher) releaseRef(path string) (removed bool, activeCount int) {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()

	switch count := watcher.recursiveWatches[path]; {
	case count > 1:
		watcher.recursiveWatches[path] = count - 1
	case count == 1:
		delete(watcher.recursiveWatches, path)
		if len(watcher.callbacks[path]) == 0 {
			if watcher.activeWatches > 0 {
				watcher.activeWatches--
			}
			return true, watcher.activeWatches
		}
	}
	return false, 0
}
