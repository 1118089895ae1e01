package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestServeUntilSignalShutsDownOnSignal(t *testing.T) {
	logger := newNotifierTestLogger()

	stop := make(chan os.Signal, 1)
	stop <- syscall.SIGTERM

	released := make(chan struct{})
	shutdownCalled := make(chan struct{}, 1)
	serve := func() error {
		<-released
		return http.ErrServerClosed
	}
	shutdown := func(context.Context) error {
		shutdownCalled <- struct{}{}
		close(released)
		return nil
	}

	done := make(chan struct{})
	go func() {
		serveUntilSignal(serve, shutdown, stop, logger)
		close(done)
	}()

	select {
	case <-shutdownCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for shutdown")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for serveUntilSignal to return")
	}
}

func TestServeUntilSignalReturnsOnServeError(t *testing.T) {
	logger := newNotifierTestLogger()
	stop := make(chan os.Signal)

	done := make(chan struct{})
	go func() {
		serveUntilSignal(func() error {
			return errors.New("listen failed")
		}, func(context.Context) error {
			return nil
		}, stop, logger)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for serve error to end the run")
	}

	logged := false
	for _, entry := range logger.Buffer().List() {
		if entry.Message == "http server stopped" {
			logged = true
			break
		}
	}
	if !logged {
		t.Fatal("expected serve failure to be logged")
	}
}
