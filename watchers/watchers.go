// Package watchers provides decoupled observer registration and notification.
// A Registry holds an ordered pool of watchers and delivers events to them; a
// Notifier adds validation, logging, panic recovery, and a configurable error
// policy on top.
package watchers

import "context"

// Watcher receives events pushed by a registry.
type Watcher[T any] interface {
	Push(ctx context.Context, event T) error
}

// WatcherFunc adapts a function to the Watcher interface.
type WatcherFunc[T any] func(ctx context.Context, event T) error

func (f WatcherFunc[T]) Push(ctx context.Context, event T) error {
	return f(ctx, event)
}
