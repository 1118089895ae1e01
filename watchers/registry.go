package watchers

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

const maxListedWatchers = 8

// Registry is an ordered pool of watchers. Notification visits watchers in
// attach order and stops at the first error. Registry performs no validation
// and no logging; see Notifier for the managed variant.
type Registry[T any] struct {
	mu   sync.Mutex
	pool []Watcher[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Attach adds a watcher to the pool. Returns the registry for chaining.
func (r *Registry[T]) Attach(watcher Watcher[T]) *Registry[T] {
	if r == nil {
		return r
	}
	r.mu.Lock()
	r.pool = append(r.pool, watcher)
	r.mu.Unlock()
	return r
}

// AttachMany adds watchers to the pool in order.
func (r *Registry[T]) AttachMany(watchers []Watcher[T]) *Registry[T] {
	if r == nil {
		return r
	}
	r.mu.Lock()
	r.pool = append(r.pool, watchers...)
	r.mu.Unlock()
	return r
}

// Detach removes the first matching watcher from the pool.
func (r *Registry[T]) Detach(watcher Watcher[T]) error {
	if r == nil {
		return ErrNotAttached
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for index, candidate := range r.pool {
		if sameWatcher(candidate, watcher) {
			r.pool = append(r.pool[:index], r.pool[index+1:]...)
			return nil
		}
	}
	return ErrNotAttached
}

// DetachMany removes each watcher, stopping at the first miss.
func (r *Registry[T]) DetachMany(watchers []Watcher[T]) error {
	for _, watcher := range watchers {
		if err := r.Detach(watcher); err != nil {
			return err
		}
	}
	return nil
}

// Count reports the current pool size.
func (r *Registry[T]) Count() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pool)
}

// Reset prunes all watchers and returns the registry for reuse.
func (r *Registry[T]) Reset() *Registry[T] {
	if r == nil {
		return r
	}
	r.mu.Lock()
	r.pool = nil
	r.mu.Unlock()
	return r
}

// Listeners returns a snapshot of the pool in attach order.
func (r *Registry[T]) Listeners() []Watcher[T] {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make([]Watcher[T], len(r.pool))
	copy(snapshot, r.pool)
	return snapshot
}

// At returns the watcher at the given attach position.
func (r *Registry[T]) At(index int) (Watcher[T], error) {
	if r == nil {
		return nil, ErrOutOfRange
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.pool) {
		return nil, fmt.Errorf("%w: registry has %d listeners", ErrOutOfRange, len(r.pool))
	}
	return r.pool[index], nil
}

// Merge returns a new registry holding the receiver's watchers followed by the
// other registry's. Neither operand is modified.
func (r *Registry[T]) Merge(other *Registry[T]) *Registry[T] {
	merged := NewRegistry[T]()
	merged.AttachMany(r.Listeners())
	merged.AttachMany(other.Listeners())
	return merged
}

// Notify delivers the event to every watcher in attach order. Delivery stops
// at the first watcher error, which is returned unwrapped.
func (r *Registry[T]) Notify(ctx context.Context, event T) error {
	for _, watcher := range r.Listeners() {
		if watcher == nil {
			continue
		}
		if err := watcher.Push(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[T]) String() string {
	listeners := r.Listeners()
	names := make([]string, 0, maxListedWatchers)
	for index, watcher := range listeners {
		if index == maxListedWatchers {
			names = append(names, "...")
			break
		}
		names = append(names, watcherName(watcher))
	}
	return fmt.Sprintf("Registry[%s]", strings.Join(names, ", "))
}

// sameWatcher matches comparable watchers by equality and function-backed
// watchers by code pointer.
func sameWatcher[T any](a, b Watcher[T]) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	left := reflect.ValueOf(a)
	right := reflect.ValueOf(b)
	if left.Type() != right.Type() {
		return false
	}
	if left.Kind() == reflect.Func {
		return left.Pointer() == right.Pointer()
	}
	if left.Type().Comparable() {
		return a == b
	}
	return false
}

func watcherName[T any](watcher Watcher[T]) string {
	if watcher == nil {
		return "nil"
	}
	name := fmt.Sprintf("%T", watcher)
	base, params, generic := strings.Cut(name, "[")
	if index := strings.LastIndex(base, "."); index >= 0 {
		base = base[index+1:]
	}
	if generic {
		base += "[" + params
	}
	return strings.TrimPrefix(base, "*")
}
