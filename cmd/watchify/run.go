package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"watchify/internal/cli"
	"watchify/internal/event"
	"watchify/internal/logging"
	"watchify/internal/procwatch"
	"watchify/internal/version"
)

// runExec runs a command under a pty, mirrors its output lines to stdout, and
// exits with the command's exit code.
func runExec(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprintln(errOut, "usage: watchify run [flags] -- command [args ...]")
		fs.PrintDefaults()
	}

	helpVersion := cli.AddHelpVersionFlags(fs, "", "")
	rawEvents := fs.Bool("events", false, "Print logfmt event lines instead of raw output")

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

	commandArgs := fs.Args()
	if len(commandArgs) > 0 && commandArgs[0] == "--" {
		commandArgs = commandArgs[1:]
	}
	if len(commandArgs) == 0 {
		fs.Usage()
		return 2
	}

	logger := logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), logging.LevelWarning, errOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Block rather than drop so no output lines are lost.
	bus := event.NewBus[event.Event](ctx, event.BusOptions{
		Name:                 "process_events",
		SubscriberBufferSize: 1024,
		BlockOnFull:          true,
	})
	defer bus.Close()

	events, cancelSubscription := bus.Subscribe()
	defer cancelSubscription()

	printDone := make(chan struct{})
	go func() {
		defer close(printDone)
		for received := range events {
			processEvent, ok := received.(event.ProcessEvent)
			if !ok {
				continue
			}
			if *rawEvents {
				fmt.Fprintln(out, eventLine(processEvent))
				continue
			}
			if processEvent.EventType == event.TypeProcessOutput {
				fmt.Fprintln(out, processEvent.Line)
			}
		}
	}()

	process, err := procwatch.Start(ctx, commandArgs[0], commandArgs[1:], procwatch.Options{
		Logger: logger,
		Bus:    bus,
	})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer process.Close()

	exitCode, err := process.Wait(ctx)
	if err != nil {
		_ = process.Close()
		fmt.Fprintln(errOut, err)
		return 1
	}

	// Published lines are already buffered on the subscriber channel; closing
	// the bus lets the print loop drain them and exit.
	bus.Close()
	<-printDone

	if exitCode < 0 {
		return 1
	}
	return exitCode
}

func runVersion(out io.Writer) int {
	fmt.Fprintln(out, version.Get().Summary())
	return 0
}
