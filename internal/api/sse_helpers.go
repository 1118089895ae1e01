package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"watchify/internal/logging"
)

const (
	sseHeartbeatInterval = 15 * time.Second
	sseRetryInterval     = 5 * time.Second
)

// sseStream writes server-sent-event frames and keeps the connection
// flushed so clients see each frame as it happens.
type sseStream struct {
	writer  http.ResponseWriter
	flusher http.Flusher
}

type sseErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// openSSEStream sets the event-stream headers and emits the retry hint.
func openSSEStream(w http.ResponseWriter) (*sseStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}

	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", cacheControlNoStore)
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")

	stream := &sseStream{writer: w, flusher: flusher}
	if _, err := fmt.Fprintf(w, "retry: %d\n\n", sseRetryInterval.Milliseconds()); err != nil {
		return nil, err
	}
	flusher.Flush()
	return stream, nil
}

func (stream *sseStream) comment(text string) error {
	if _, err := fmt.Fprintf(stream.writer, ": %s\n\n", text); err != nil {
		return err
	}
	stream.flusher.Flush()
	return nil
}

// event writes one frame; payload data is JSON split across data lines.
func (stream *sseStream) event(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var frame bytes.Buffer
	if name != "" {
		fmt.Fprintf(&frame, "event: %s\n", name)
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		frame.WriteString("data: ")
		frame.Write(line)
		frame.WriteByte('\n')
	}
	frame.WriteByte('\n')

	if _, err := stream.writer.Write(frame.Bytes()); err != nil {
		return err
	}
	stream.flusher.Flush()
	return nil
}

// streamSSE pumps values to the client until the request ends, with
// heartbeat comments to keep intermediaries from closing the connection.
// send may skip a value by returning nil without writing.
func streamSSE[T any](r *http.Request, stream *sseStream, values <-chan T, send func(*sseStream, T) error) {
	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := stream.comment("ping"); err != nil {
				return
			}
		case received, ok := <-values:
			if !ok {
				return
			}
			if err := send(stream, received); err != nil {
				return
			}
		}
	}
}

// sseRefuse rejects the request before any stream frame was written.
func sseRefuse(w http.ResponseWriter, r *http.Request, logger *logging.Logger, status int, message string, cause error) {
	logSSEFailure(logger, r, status, message, cause)
	http.Error(w, message, status)
}

// sseFail reports a failure as an error event so EventSource clients see
// the reason instead of a silently broken connection.
func sseFail(w http.ResponseWriter, r *http.Request, logger *logging.Logger, status int, message string) {
	stream, err := openSSEStream(w)
	if err != nil {
		sseRefuse(w, r, logger, status, message, err)
		return
	}
	logSSEFailure(logger, r, status, message, nil)
	_ = stream.event("", sseErrorBody{Type: "error", Message: message, Status: status})
}

func logSSEFailure(logger *logging.Logger, r *http.Request, status int, message string, cause error) {
	if logger == nil || r == nil {
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
	if cause != nil {
		fields["error"] = cause.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Error("sse error", fields)
	} else {
		logger.Warn("sse error", fields)
	}
}
