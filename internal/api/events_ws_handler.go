package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"watchify/internal/event"
	"watchify/internal/logging"
)

const (
	eventsPerMinuteLimit = 100
	wsBufferSize         = 1024
	wsWriteTimeout       = 10 * time.Second
)

// EventsHandler streams bus events over a websocket with subscribe messages.
type EventsHandler struct {
	Bus            *event.Bus[event.Event]
	Logger         *logging.Logger
	AuthToken      string
	AllowedOrigins []string
}

type eventSubscribeMessage struct {
	Subscribe []string `json:"subscribe"`
}

type eventFilter struct {
	mutex sync.RWMutex
	types map[string]struct{}
}

func newEventFilter(allowed map[string]struct{}) *eventFilter {
	types := make(map[string]struct{}, len(allowed))
	for eventType := range allowed {
		types[eventType] = struct{}{}
	}
	return &eventFilter{types: types}
}

func (filter *eventFilter) Allows(eventType string) bool {
	if filter == nil {
		return true
	}
	filter.mutex.RLock()
	defer filter.mutex.RUnlock()
	if len(filter.types) == 0 {
		return false
	}
	_, ok := filter.types[eventType]
	return ok
}

func (filter *eventFilter) Set(subscriptions []string, allowed map[string]struct{}) {
	if filter == nil {
		return
	}
	types := make(map[string]struct{})
	for _, eventType := range subscriptions {
		if _, ok := allowed[eventType]; ok {
			types[eventType] = struct{}{}
		}
	}
	filter.mutex.Lock()
	filter.types = types
	filter.mutex.Unlock()
}

type rateLimiter struct {
	mutex       sync.Mutex
	count       int
	windowStart time.Time
}

func (limiter *rateLimiter) Allow(now time.Time) bool {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	if limiter.windowStart.IsZero() || now.Sub(limiter.windowStart) >= time.Minute {
		limiter.windowStart = now
		limiter.count = 0
	}
	if limiter.count >= eventsPerMinuteLimit {
		return false
	}
	limiter.count++
	return true
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !validateToken(r, h.AuthToken) {
		h.logSocketError(r, http.StatusUnauthorized, "unauthorized", nil)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.Bus == nil {
		h.logSocketError(r, http.StatusInternalServerError, "event bus unavailable", nil)
		http.Error(w, "event bus unavailable", http.StatusInternalServerError)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsBufferSize,
		WriteBufferSize: wsBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r, h.AllowedOrigins)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logSocketError(r, http.StatusBadRequest, "websocket upgrade failed", err)
		return
	}
	defer conn.Close()

	allowed := map[string]struct{}{
		event.TypeFileChanged:   {},
		event.TypeWatchError:    {},
		event.TypeProcessOutput: {},
		event.TypeProcessExit:   {},
		event.TypeSpyTriggered:  {},
	}
	filter := newEventFilter(allowed)
	limiter := &rateLimiter{}

	events, cancel := h.Bus.SubscribeFiltered(func(received event.Event) bool {
		if received == nil {
			return false
		}
		_, ok := allowed[received.Type()]
		return ok
	})
	if events == nil {
		h.closeSocket(conn, r, "event stream unavailable")
		return
	}
	defer cancel()

	stop := make(chan struct{})
	defer close(stop)
	go h.writePump(conn, events, filter, limiter, stop)

	// Read loop: the only inbound messages are subscription updates; a read
	// error means the client went away.
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var subscribe eventSubscribeMessage
		if err := json.Unmarshal(message, &subscribe); err != nil {
			continue
		}
		if subscribe.Subscribe != nil {
			filter.Set(subscribe.Subscribe, allowed)
		}
	}
}

func (h *EventsHandler) writePump(conn *websocket.Conn, events <-chan event.Event, filter *eventFilter, limiter *rateLimiter, stop <-chan struct{}) {
	for {
		select {
		case received, ok := <-events:
			if !ok {
				return
			}
			if received == nil || !filter.Allows(received.Type()) {
				continue
			}
			if !limiter.Allow(time.Now()) {
				continue
			}
			payload, ok := buildEventPayload(received)
			if !ok {
				continue
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(payload); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

func (h *EventsHandler) closeSocket(conn *websocket.Conn, r *http.Request, message string) {
	h.logSocketError(r, http.StatusInternalServerError, message, nil)
	deadline := time.Now().Add(wsWriteTimeout)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, message), deadline)
}

func (h *EventsHandler) logSocketError(r *http.Request, status int, message string, err error) {
	if h.Logger == nil || r == nil {
		return
	}
	fields := map[string]string{
		"path":    r.URL.Path,
		"status":  strconv.Itoa(status),
		"message": message,
	}
	if r.RemoteAddr != "" {
		fields["remote_addr"] = r.RemoteAddr
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error("websocket error", fields)
	} else {
		h.Logger.Warn("websocket error", fields)
	}
}
