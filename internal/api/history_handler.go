package api

import (
	"net/http"
	"strconv"

	"watchify/internal/event"
	"watchify/internal/logging"
)

// HistoryHandler dumps the bus history ring as JSON.
type HistoryHandler struct {
	Bus    *event.Bus[event.Event]
	Logger *logging.Logger
}

type historyResponse struct {
	Events []eventPayload `json:"events"`
	Count  int            `json:"count"`
}

func (h *HistoryHandler) handle(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodGet {
		return methodNotAllowed(w, http.MethodGet)
	}
	if h.Bus == nil {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "event history unavailable"}
	}

	events := h.Bus.DumpHistory()
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit < 0 {
			return &apiError{Status: http.StatusBadRequest, Message: "invalid limit"}
		}
		if limit < len(events) {
			events = events[len(events)-limit:]
		}
	}

	payloads := make([]eventPayload, 0, len(events))
	for _, received := range events {
		payload, ok := buildEventPayload(received)
		if !ok {
			continue
		}
		payloads = append(payloads, payload)
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Events: payloads,
		Count:  len(payloads),
	})
	return nil
}
