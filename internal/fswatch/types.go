package fswatch

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"watchify/internal/logging"
	"watchify/internal/metrics"
)

// Change represents a single filesystem change.
type Change struct {
	Path      string
	Op        fsnotify.Op
	Timestamp time.Time
}

// Handle releases watcher resources for a registration.
type Handle interface {
	Close() error
}

// Watch registers a callback for filesystem changes on a path.
type Watch interface {
	Watch(path string, callback func(Change)) (Handle, error)
}

// Options controls watcher behavior.
type Options struct {
	Logger          *logging.Logger
	Registry        *metrics.Registry
	Debounce        time.Duration
	WatchRecursive  bool
	MaxWatches      int
	CleanupInterval time.Duration
	ErrorHandler    func(error)
}

// Stats reports current watcher counters.
type Stats struct {
	ActiveWatches    int
	ChangesDelivered uint64
	ChangesDropped   uint64
	Errors           uint64
	RestartAttempts  int
}

// Watcher is the concrete fsnotify-backed implementation.
type Watcher struct {
	watcher          *fsnotify.Watcher
	mutex            sync.Mutex
	callbacks        map[string][]callbackEntry
	debouncer        *debouncer
	changes          chan fsnotify.Event
	errors           chan error
	done             chan struct{}
	closed           bool
	logger           *logging.Logger
	registry         *metrics.Registry
	watchRecursive   bool
	maxWatches       int
	cleanupInterval  time.Duration
	errorHandler     func(error)
	recursiveWatches map[string]int
	activeWatches    int
	nextID           uint64

	changesDelivered uint64
	changesDropped   uint64
	errorCount       uint64

	restartMutex    sync.Mutex
	restartTimer    *time.Timer
	restartAttempts int
}
