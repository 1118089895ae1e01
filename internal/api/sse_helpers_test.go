package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type sseFrame struct {
	Event string
	Data  []byte
}

func readSSEFrame(reader *bufio.Reader) (sseFrame, error) {
	var frame sseFrame
	var dataLines []string

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return frame, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if len(dataLines) > 0 {
				frame.Data = []byte(strings.Join(dataLines, "\n"))
			}
			return frame, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "retry:") {
			continue
		}
		if strings.HasPrefix(line, "event:") {
			frame.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			continue
		}
	}
}

func readSSEFrameWithTimeout(reader *bufio.Reader, timeout time.Duration) (sseFrame, error) {
	frameCh := make(chan sseFrame, 1)
	errCh := make(chan error, 1)

	go func() {
		frame, err := readSSEFrame(reader)
		if err != nil {
			errCh <- err
			return
		}
		frameCh <- frame
	}()

	select {
	case frame := <-frameCh:
		return frame, nil
	case err := <-errCh:
		return sseFrame{}, err
	case <-time.After(timeout):
		return sseFrame{}, errors.New("timeout")
	}
}

func readSSEDataFrame(t *testing.T, reader *bufio.Reader, timeout time.Duration) []byte {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("timed out waiting for sse frame")
		}
		frame, err := readSSEFrameWithTimeout(reader, remaining)
		if err != nil {
			t.Fatalf("read sse frame: %v", err)
		}
		if len(frame.Data) == 0 {
			continue
		}
		return frame.Data
	}
}

func newSSETestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping sse test (listener unavailable): %v", err)
	}
	server := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	server.Start()
	return server
}
