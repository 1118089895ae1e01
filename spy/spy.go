// Package spy instruments functions so that calling them notifies a pool of
// watchers, without the callers changing. A wrapped function keeps working
// after its spy is undone; it simply reverts to pass-through.
package spy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"watchify/watchers"
)

// Trigger controls whether watchers are notified before or after the spied
// function runs.
type Trigger string

const (
	TriggerBefore Trigger = "before"
	TriggerAfter  Trigger = "after"
)

var (
	// ErrUnknownTrigger is returned for triggers other than before/after.
	ErrUnknownTrigger = errors.New("spy: unknown trigger")

	// ErrUnknownSpy is returned when undoing a target that is not spied.
	ErrUnknownSpy = errors.New("spy: target is not spied")

	// ErrNilTarget is returned when wrapping a nil function.
	ErrNilTarget = errors.New("spy: nil target")
)

// Fn is the shape of a function a Spy can instrument.
type Fn[T any] func(ctx context.Context, event T) error

// Container tracks a single interception point.
type Container[T any] struct {
	name     string
	trigger  Trigger
	original Fn[T]
	active   atomic.Bool
}

func (c *Container[T]) Name() string {
	return c.name
}

func (c *Container[T]) Trigger() Trigger {
	return c.trigger
}

func (c *Container[T]) Active() bool {
	return c.active.Load()
}

func (c *Container[T]) String() string {
	return fmt.Sprintf("Spying(target=%s, trigger=%s)", c.name, c.trigger)
}

// Spy wraps functions so their invocations notify the underlying pool.
type Spy[T any] struct {
	pool    *watchers.Notifier[T]
	mu      sync.Mutex
	targets map[string]*Container[T]
}

func New[T any](pool *watchers.Notifier[T]) *Spy[T] {
	if pool == nil {
		pool = watchers.NewNotifier[T](watchers.NotifierOptions{})
	}
	return &Spy[T]{
		pool:    pool,
		targets: make(map[string]*Container[T]),
	}
}

// Pool exposes the notifier so callers can attach and detach watchers.
func (s *Spy[T]) Pool() *watchers.Notifier[T] {
	return s.pool
}

// Wrap registers an interception point under name and returns the
// instrumented function. Wrapping a name again replaces the previous spy.
func (s *Spy[T]) Wrap(name string, target Fn[T], trigger Trigger) (Fn[T], error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if trigger == "" {
		trigger = TriggerAfter
	}
	if trigger != TriggerBefore && trigger != TriggerAfter {
		return nil, fmt.Errorf("%w: %q (options are before, after)", ErrUnknownTrigger, trigger)
	}

	container := &Container[T]{
		name:     name,
		trigger:  trigger,
		original: target,
	}
	container.active.Store(true)

	s.mu.Lock()
	if previous, ok := s.targets[name]; ok {
		previous.active.Store(false)
	}
	s.targets[name] = container
	s.mu.Unlock()

	wrapped := func(ctx context.Context, event T) error {
		if !container.active.Load() {
			return target(ctx, event)
		}
		if trigger == TriggerBefore {
			if err := s.pool.Notify(ctx, event); err != nil {
				return err
			}
			return target(ctx, event)
		}
		if err := target(ctx, event); err != nil {
			return err
		}
		return s.pool.Notify(ctx, event)
	}
	return wrapped, nil
}

// Undo deactivates the spy for name. Wrapped functions already handed out
// revert to calling the original directly. Returns the original function.
func (s *Spy[T]) Undo(name string) (Fn[T], error) {
	s.mu.Lock()
	container, ok := s.targets[name]
	if ok {
		delete(s.targets, name)
	}
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSpy, name)
	}
	container.active.Store(false)
	return container.original, nil
}

// UndoAll deactivates every spy and returns their containers.
func (s *Spy[T]) UndoAll() []*Container[T] {
	s.mu.Lock()
	containers := make([]*Container[T], 0, len(s.targets))
	for name, container := range s.targets {
		delete(s.targets, name)
		containers = append(containers, container)
	}
	s.mu.Unlock()

	for _, container := range containers {
		container.active.Store(false)
	}
	sortContainers(containers)
	return containers
}

// Spies returns the active containers sorted by target name.
func (s *Spy[T]) Spies() []*Container[T] {
	s.mu.Lock()
	containers := make([]*Container[T], 0, len(s.targets))
	for _, container := range s.targets {
		containers = append(containers, container)
	}
	s.mu.Unlock()

	sortContainers(containers)
	return containers
}

// Reset prunes all watchers from the pool and, unless told otherwise, undoes
// every spy as well.
func (s *Spy[T]) Reset(undoSpies bool) *Spy[T] {
	if undoSpies {
		s.UndoAll()
	}
	s.pool.Reset()
	return s
}

func sortContainers[T any](containers []*Container[T]) {
	sort.Slice(containers, func(i, j int) bool {
		return containers[i].name < containers[j].name
	})
}
