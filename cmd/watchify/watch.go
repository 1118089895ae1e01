package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"watchify/internal/cli"
	"watchify/internal/config"
	"watchify/internal/event"
	"watchify/internal/fswatch"
	"watchify/internal/fsutil"
	"watchify/internal/logging"
	"watchify/internal/metrics"
	"watchify/internal/version"
)

// runWatch watches paths without the HTTP surface and prints change events as
// logfmt lines on stdout.
func runWatch(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprintln(errOut, "usage: watchify watch [flags] [path ...]")
		fs.PrintDefaults()
	}

	helpVersion := cli.AddHelpVersionFlags(fs, "", "")
	configPath := fs.String("config", "watchify.yaml", "Path to the settings file")
	recursive := fs.Bool("recursive", false, "Watch directories recursively")
	debounce := fs.Duration("debounce", 0, "Debounce window for change delivery")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if helpVersion.Help {
		fs.Usage()
		return 0
	}
	if helpVersion.Version {
		fmt.Fprintln(out, version.Get().Summary())
		return 0
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	paths := []config.WatchPath{}
	for _, path := range fs.Args() {
		paths = append(paths, config.WatchPath{Path: path, Recursive: *recursive})
	}
	if len(paths) == 0 {
		paths = settings.Watch.Paths
	}
	if len(paths) == 0 {
		fmt.Fprintln(errOut, "no paths to watch: pass paths or configure watch.paths")
		return 2
	}

	if *debounce <= 0 {
		*debounce = settings.Watch.Debounce()
	}

	// Events go to stdout; keep logging on stderr so the stream stays clean.
	logger := logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), logging.LevelWarning, errOut)

	watcher, err := fswatch.NewWithOptions(fswatch.Options{
		Logger:         logger,
		Registry:       metrics.Default,
		Debounce:       *debounce,
		MaxWatches:     settings.Watch.MaxWatches,
		WatchRecursive: *recursive || anyRecursive(paths),
	})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := fswatch.NewEventHub(ctx, watcher)
	defer hub.Close()

	for _, watchPath := range paths {
		normalized, err := fsutil.NormalizePath(watchPath.Path)
		if err != nil {
			fmt.Fprintf(errOut, "watch %s: %v\n", watchPath.Path, err)
			return 1
		}
		if err := hub.WatchPath(normalized); err != nil {
			fmt.Fprintf(errOut, "watch %s: %v\n", normalized, err)
			return 1
		}
	}

	events, cancelSubscription := hub.Bus().Subscribe()
	defer cancelSubscription()

	stopSignals := make(chan os.Signal, 1)
	signal.Notify(stopSignals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stopSignals)

	for {
		select {
		case <-stopSignals:
			return 0
		case received, ok := <-events:
			if !ok {
				return 0
			}
			fmt.Fprintln(out, eventLine(received))
		}
	}
}

// eventLine renders an event as a single logfmt line.
func eventLine(received event.Event) string {
	builder := strings.Builder{}
	builder.WriteString("time=")
	builder.WriteString(received.Timestamp().UTC().Format(time.RFC3339))
	builder.WriteString(" type=")
	builder.WriteString(received.Type())

	writeField := func(key, value string) {
		if value == "" {
			return
		}
		builder.WriteString(" ")
		builder.WriteString(key)
		builder.WriteString("=")
		builder.WriteString(strconv.Quote(value))
	}

	switch typed := received.(type) {
	case event.FileEvent:
		writeField("path", typed.Path)
		writeField("op", typed.Operation)
	case event.ProcessEvent:
		writeField("command", typed.Command)
		if typed.EventType == event.TypeProcessExit {
			builder.WriteString(" exit_code=")
			builder.WriteString(strconv.Itoa(typed.ExitCode))
		} else {
			writeField("line", typed.Line)
		}
	case event.ConfigEvent:
		writeField("path", typed.Path)
		writeField("change", typed.ChangeType)
	case event.SpyEvent:
		writeField("target", typed.Target)
		writeField("trigger", typed.Trigger)
	case event.WatchErrorEvent:
		writeField("path", typed.Path)
		writeField("reason", typed.Reason)
	}

	return builder.String()
}
