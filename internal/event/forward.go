package event

import (
	"context"

	"watchify/internal/logging"
)

// Notifier delivers an event to a pool of attached watchers.
type Notifier[T any] interface {
	Notify(ctx context.Context, event T) error
}

// Forward bridges a bus into a notifier: every event published on the bus is
// delivered to the notifier's watchers until the context is cancelled or the
// returned stop function is called.
func Forward[T any](ctx context.Context, bus *Bus[T], notifier Notifier[T], logger *logging.Logger) func() {
	if bus == nil || notifier == nil {
		return func() {}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	events, cancel := bus.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := notifier.Notify(ctx, event); err != nil && logger != nil {
					logger.Error("notify from bus failed", map[string]string{
						"bus":   bus.busName(),
						"error": err.Error(),
					})
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
