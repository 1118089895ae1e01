package api

import (
	"net/http"

	"watchify/internal/event"
	"watchify/internal/logging"
	"watchify/internal/metrics"
)

// RouterOptions collects the dependencies the HTTP surface needs.
type RouterOptions struct {
	Bus            *event.Bus[event.Event]
	Logger         *logging.Logger
	Registry       *metrics.Registry
	AuthToken      string
	AllowedOrigins []string
}

// RegisterRoutes wires every handler onto the mux.
func RegisterRoutes(mux *http.ServeMux, options RouterOptions) {
	logger := options.Logger

	eventsSSE := &EventsSSEHandler{
		Bus:       options.Bus,
		Logger:    logger,
		AuthToken: options.AuthToken,
	}
	eventsWS := &EventsHandler{
		Bus:            options.Bus,
		Logger:         logger,
		AuthToken:      options.AuthToken,
		AllowedOrigins: options.AllowedOrigins,
	}
	logsSSE := &LogsSSEHandler{
		Logger:    logger,
		AuthToken: options.AuthToken,
	}
	history := &HistoryHandler{
		Bus:    options.Bus,
		Logger: logger,
	}
	metricsHandler := &MetricsHandler{Registry: options.Registry}

	wrap := func(handler http.Handler) http.Handler {
		return loggingMiddleware(logger, handler)
	}

	mux.Handle("/api/events/stream", wrap(eventsSSE))
	mux.Handle("/ws/events", wrap(eventsWS))
	mux.Handle("/api/logs/stream", wrap(logsSSE))
	mux.Handle("/api/events/history", wrap(restHandler(options.AuthToken, history.handle)))
	mux.Handle("/metrics", wrap(metricsHandler))
	mux.Handle("/api/health", wrap(restHandler("", handleHealth)))
	mux.Handle("/api/version", wrap(restHandler("", handleVersion)))
}
