package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"watchify/internal/config"
	"watchify/internal/event"
	"watchify/internal/logging"
)

// EventsSSEHandler streams watch, process, spy, and config events over SSE.
// Events from the main bus and the config bus are merged into one stream.
type EventsSSEHandler struct {
	Bus       *event.Bus[event.Event]
	Logger    *logging.Logger
	AuthToken string
}

type sseTypeFilter struct {
	enabled bool
	types   map[string]struct{}
}

func newSSETypeFilter(values []string) *sseTypeFilter {
	if len(values) == 0 {
		return &sseTypeFilter{}
	}
	parsed := make(map[string]struct{})
	for _, value := range values {
		for _, entry := range strings.Split(value, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			parsed[entry] = struct{}{}
		}
	}
	if len(parsed) == 0 {
		return &sseTypeFilter{}
	}
	return &sseTypeFilter{enabled: true, types: parsed}
}

func (filter *sseTypeFilter) Allows(eventType string) bool {
	if filter == nil || !filter.enabled {
		return true
	}
	_, ok := filter.types[eventType]
	return ok
}

func (h *EventsSSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !validateToken(r, h.AuthToken) {
		sseRefuse(w, r, h.Logger, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if h.Bus == nil {
		sseFail(w, r, h.Logger, http.StatusInternalServerError, "event bus unavailable")
		return
	}
	configBus := config.Bus()
	if configBus == nil {
		sseFail(w, r, h.Logger, http.StatusInternalServerError, "config events unavailable")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	r = r.WithContext(ctx)

	typeFilter := newSSETypeFilter(r.URL.Query()["types"])
	limiter := &rateLimiter{}

	busEvents, cancelBus := h.Bus.SubscribeFiltered(func(received event.Event) bool {
		if received == nil {
			return false
		}
		if !typeFilter.Allows(received.Type()) {
			return false
		}
		return limiter.Allow(time.Now())
	})
	if busEvents == nil {
		sseFail(w, r, h.Logger, http.StatusInternalServerError, "event stream unavailable")
		return
	}

	configEvents, cancelConfig := configBus.SubscribeFiltered(func(received event.ConfigEvent) bool {
		return typeFilter.Allows(received.Type())
	})
	if configEvents == nil {
		cancelBus()
		sseFail(w, r, h.Logger, http.StatusInternalServerError, "config events unavailable")
		return
	}

	stream, err := openSSEStream(w)
	if err != nil {
		logSSEFailure(h.Logger, r, http.StatusInternalServerError, "event stream unavailable", err)
		cancelBus()
		cancelConfig()
		return
	}

	// Merge both buses into one payload channel; each source goroutine
	// releases its subscription when it stops.
	merged := make(chan eventPayload, 64)
	var wg sync.WaitGroup
	mergeEvents(ctx, &wg, merged, busEvents, cancelBus)
	mergeEvents(ctx, &wg, merged, configEvents, cancelConfig)
	go func() {
		wg.Wait()
		close(merged)
	}()

	streamSSE(r, stream, merged, func(stream *sseStream, payload eventPayload) error {
		return stream.event("", payload)
	})

	cancel()
	wg.Wait()
}

func mergeEvents[T event.Event](ctx context.Context, wg *sync.WaitGroup, merged chan<- eventPayload, input <-chan T, cancel func()) {
	if input == nil {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case received, ok := <-input:
				if !ok {
					return
				}
				payload, ok := buildEventPayload(received)
				if !ok {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case merged <- payload:
				}
			}
		}
	}()
}
