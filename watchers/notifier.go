package watchers

import (
	"context"
	"fmt"
)

// Logger is the subset of the project logger the notifier needs.
type Logger interface {
	Debug(message string, fields map[string]string)
	Error(message string, fields map[string]string)
}

// Metrics records notification outcomes per watcher.
type Metrics interface {
	IncNotifyDelivered(watcher string)
	IncNotifyFailed(watcher string)
}

type NotifierOptions struct {
	Logger  Logger
	Metrics Metrics

	// Strict stops notification at the first failing watcher and returns a
	// *PushError. The default logs the failure and keeps delivering.
	Strict bool
}

// Notifier wraps a Registry with validation, logging, panic recovery, and an
// error policy for failing watchers.
type Notifier[T any] struct {
	registry *Registry[T]
	logger   Logger
	metrics  Metrics
	strict   bool
}

func NewNotifier[T any](opts NotifierOptions) *Notifier[T] {
	return &Notifier[T]{
		registry: NewRegistry[T](),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		strict:   opts.Strict,
	}
}

// Attach adds a watcher after validating it.
func (n *Notifier[T]) Attach(watcher Watcher[T]) error {
	if watcher == nil {
		return ErrNilWatcher
	}
	n.registry.Attach(watcher)
	n.logDebug("watcher subscribed", watcher)
	return nil
}

// AttachMany validates every watcher before attaching any of them.
func (n *Notifier[T]) AttachMany(watchers []Watcher[T]) error {
	for _, watcher := range watchers {
		if watcher == nil {
			return ErrNilWatcher
		}
	}
	n.registry.AttachMany(watchers)
	for _, watcher := range watchers {
		n.logDebug("watcher subscribed", watcher)
	}
	return nil
}

func (n *Notifier[T]) Detach(watcher Watcher[T]) error {
	if err := n.registry.Detach(watcher); err != nil {
		return err
	}
	n.logDebug("watcher unsubscribed", watcher)
	return nil
}

func (n *Notifier[T]) DetachMany(watchers []Watcher[T]) error {
	for _, watcher := range watchers {
		if err := n.Detach(watcher); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier[T]) Count() int {
	return n.registry.Count()
}

func (n *Notifier[T]) Reset() *Notifier[T] {
	n.registry.Reset()
	return n
}

func (n *Notifier[T]) Listeners() []Watcher[T] {
	return n.registry.Listeners()
}

func (n *Notifier[T]) At(index int) (Watcher[T], error) {
	return n.registry.At(index)
}

// Merge returns a new notifier with the receiver's settings holding both
// pools. Neither operand is modified.
func (n *Notifier[T]) Merge(other *Notifier[T]) *Notifier[T] {
	merged := NewNotifier[T](NotifierOptions{
		Logger:  n.logger,
		Metrics: n.metrics,
		Strict:  n.strict,
	})
	merged.registry = n.registry.Merge(other.registry)
	return merged
}

// Notify delivers the event to every watcher in attach order. A panicking
// watcher is treated as a failed push. In strict mode the first failure stops
// delivery and is returned as a *PushError; otherwise failures are logged and
// delivery continues.
func (n *Notifier[T]) Notify(ctx context.Context, event T) error {
	for _, watcher := range n.registry.Listeners() {
		name := watcherName(watcher)
		n.logDebug("notifying watcher", watcher)

		err := push(ctx, watcher, event)
		if err == nil {
			if n.metrics != nil {
				n.metrics.IncNotifyDelivered(name)
			}
			continue
		}

		if n.metrics != nil {
			n.metrics.IncNotifyFailed(name)
		}
		if n.strict {
			return &PushError{Watcher: name, Err: err}
		}
		if n.logger != nil {
			n.logger.Error("watcher failed to process event", map[string]string{
				"watcher": name,
				"error":   err.Error(),
			})
		}
	}
	return nil
}

func (n *Notifier[T]) String() string {
	return "Notifier" + trimRegistryPrefix(n.registry.String())
}

func (n *Notifier[T]) logDebug(message string, watcher Watcher[T]) {
	if n.logger == nil {
		return
	}
	n.logger.Debug(message, map[string]string{
		"watcher": watcherName(watcher),
	})
}

func push[T any](ctx context.Context, watcher Watcher[T], event T) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panicked: %v", recovered)
		}
	}()
	if watcher == nil {
		return ErrNilWatcher
	}
	return watcher.Push(ctx, event)
}

func trimRegistryPrefix(value string) string {
	const prefix = "Registry"
	if len(value) >= len(prefix) && value[:len(prefix)] == prefix {
		return value[len(prefix):]
	}
	return value
}
