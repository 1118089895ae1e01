package watchers

import (
	"errors"
	"fmt"
)

var (
	// ErrNilWatcher is returned when a nil watcher is attached to a Notifier.
	ErrNilWatcher = errors.New("watchers: nil watcher")

	// ErrNotAttached is returned when detaching a watcher that is not in the pool.
	ErrNotAttached = errors.New("watchers: watcher not attached")

	// ErrOutOfRange is returned when indexing past the end of the pool.
	ErrOutOfRange = errors.New("watchers: index out of range")
)

// PushError reports a watcher that failed to process an event under strict
// notification.
type PushError struct {
	Watcher string
	Err     error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("watchers: %s failed to process event: %v", e.Watcher, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}
