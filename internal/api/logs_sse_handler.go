package api

import (
	"net/http"

	"watchify/internal/logging"
)

const logSnapshotEntries = 100

// LogsSSEHandler streams structured log entries over SSE. The client first
// receives a snapshot of recent entries, then live entries as they happen.
type LogsSSEHandler struct {
	Logger    *logging.Logger
	AuthToken string
}

func (h *LogsSSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !validateToken(r, h.AuthToken) {
		sseRefuse(w, r, h.Logger, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	filterLevel := logging.Level("")
	if rawLevel := r.URL.Query().Get("level"); rawLevel != "" {
		if level, ok := logging.ParseLevel(rawLevel); ok {
			filterLevel = level
		}
	}

	if h.Logger == nil {
		sseFail(w, r, nil, http.StatusServiceUnavailable, "log stream unavailable")
		return
	}
	entries, cancel := h.Logger.Subscribe()
	if entries == nil {
		sseFail(w, r, h.Logger, http.StatusServiceUnavailable, "log stream unavailable")
		return
	}
	defer cancel()

	stream, err := openSSEStream(w)
	if err != nil {
		logSSEFailure(h.Logger, r, http.StatusInternalServerError, "log stream unavailable", err)
		return
	}

	if buffer := h.Logger.Buffer(); buffer != nil {
		for _, entry := range buffer.Last(logSnapshotEntries) {
			if filterLevel != "" && !logging.LevelAtLeast(entry.Level, filterLevel) {
				continue
			}
			if err := stream.event("", entry); err != nil {
				return
			}
		}
	}

	streamSSE(r, stream, entries, func(stream *sseStream, entry logging.LogEntry) error {
		if filterLevel != "" && !logging.LevelAtLeast(entry.Level, filterLevel) {
			return nil
		}
		return stream.event("", entry)
	})
}
