package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchify/internal/api"
	"watchify/internal/cli"
	"watchify/internal/config"
	"watchify/internal/event"
	"watchify/internal/fswatch"
	"watchify/internal/logging"
	"watchify/internal/metrics"
	"watchify/internal/version"
)

const httpServerShutdownTimeout = 5 * time.Second

type serveOptions struct {
	ConfigPath  string
	Addr        string
	AuthToken   string
	Verbose     bool
	Quiet       bool
	ShowVersion bool
}

func parseServeFlags(args []string) (serveOptions, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := serveOptions{}
	helpVersion := cli.AddHelpVersionFlags(fs, "", "")
	fs.StringVar(&opts.ConfigPath, "config", "watchify.yaml", "Path to the settings file")
	fs.StringVar(&opts.Addr, "addr", "", "Listen address (overrides the settings file)")
	fs.StringVar(&opts.AuthToken, "token", "", "API auth token (overrides the settings file)")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&opts.Quiet, "quiet", false, "Only log warnings and errors")

	if err := fs.Parse(args); err != nil {
		return serveOptions{}, err
	}
	if helpVersion.Help {
		fs.Usage()
		return serveOptions{}, flag.ErrHelp
	}
	opts.ShowVersion = helpVersion.Version
	return opts, nil
}

func runServe(args []string) int {
	opts, err := parseServeFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if opts.ShowVersion {
		fmt.Fprintln(os.Stdout, version.Get().Summary())
		return 0
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if opts.Addr != "" {
		settings.Server.Addr = opts.Addr
	}
	if opts.AuthToken != "" {
		settings.Server.AuthToken = opts.AuthToken
	}

	logLevel := settings.Log.ParsedLevel()
	if opts.Verbose {
		logLevel = logging.LevelDebug
	} else if opts.Quiet {
		logLevel = logging.LevelWarning
	}
	logBuffer := logging.NewLogBuffer(logging.DefaultBufferSize)
	logger := logging.NewLogger(logBuffer, logLevel)
	logVersionInfo(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fsWatcher, err := fswatch.NewWithOptions(fswatch.Options{
		Logger:         logger,
		Registry:       metrics.Default,
		Debounce:       settings.Watch.Debounce(),
		MaxWatches:     settings.Watch.MaxWatches,
		WatchRecursive: anyRecursive(settings.Watch.Paths),
	})
	if err != nil {
		logger.Error("filesystem watcher unavailable", map[string]string{
			"error": err.Error(),
		})
		return 1
	}
	defer fsWatcher.Close()

	hub := fswatch.NewEventHubWithOptions(ctx, fsWatcher, event.BusOptions{
		Name:        "watchify_events",
		HistorySize: settings.Events.HistorySize,
		Registry:    metrics.Default,
	})
	defer hub.Close()

	establishWatches(hub, logger, settings.Watch.Paths)

	notifier := buildEventNotifier(settings, logger)
	stopForward := event.Forward(ctx, hub.Bus(), notifier, logger)
	defer stopForward()

	if opts.ConfigPath != "" {
		if handle, err := config.WatchFile(fsWatcher, opts.ConfigPath); err != nil {
			logger.Warn("config watch unavailable", map[string]string{
				"path":  opts.ConfigPath,
				"error": err.Error(),
			})
		} else {
			defer handle.Close()
		}
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.RouterOptions{
		Bus:            hub.Bus(),
		Logger:         logger,
		Registry:       metrics.Default,
		AuthToken:      settings.Server.AuthToken,
		AllowedOrigins: settings.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("watchify listening", map[string]string{
		"addr":    server.Addr,
		"version": version.Version,
	})

	stopSignals := make(chan os.Signal, 1)
	signal.Notify(stopSignals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stopSignals)

	serveUntilSignal(server.ListenAndServe, server.Shutdown, stopSignals, logger)
	return 0
}

// serveUntilSignal runs the blocking serve function until it fails or a stop
// signal arrives, then shuts the server down within the shutdown timeout.
func serveUntilSignal(serve func() error, shutdown func(context.Context) error, stop <-chan os.Signal, logger *logging.Logger) {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- serve()
	}()

	select {
	case err := <-serveErr:
		logServeError(logger, err)
		return
	case <-stop:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpServerShutdownTimeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil && logger != nil {
		logger.Warn("server shutdown failed", map[string]string{
			"error": err.Error(),
		})
	}

	select {
	case err := <-serveErr:
		logServeError(logger, err)
	case <-time.After(httpServerShutdownTimeout):
	}
}

func logServeError(logger *logging.Logger, err error) {
	if logger == nil || err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}
	logger.Error("http server stopped", map[string]string{
		"error": err.Error(),
	})
}

func anyRecursive(paths []config.WatchPath) bool {
	for _, watchPath := range paths {
		if watchPath.Recursive {
			return true
		}
	}
	return false
}

func logVersionInfo(logger *logging.Logger) {
	if logger == nil {
		return
	}
	fields := map[string]string{
		"version": version.Version,
	}
	if version.GitCommit != "" {
		fields["commit"] = version.GitCommit
	}
	if version.Built != "" {
		fields["built"] = version.Built
	}
	logger.Info("watchify starting", fields)
}
