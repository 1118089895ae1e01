package main

import (
	"context"
	"strconv"

	"watchify/internal/config"
	"watchify/internal/event"
	"watchify/internal/logging"
	"watchify/internal/metrics"
	"watchify/watchers"
)

// buildEventNotifier assembles the watcher pool the event bus feeds. The
// server ships with one attached watcher that records every delivered event
// through the logger; strictness follows the notify settings.
func buildEventNotifier(settings config.Settings, logger *logging.Logger) *watchers.Notifier[event.Event] {
	notifier := watchers.NewNotifier[event.Event](watchers.NotifierOptions{
		Logger:  logger,
		Metrics: metrics.Default,
		Strict:  settings.Notify.Strict,
	})
	_ = notifier.Attach(eventLogWatcher(logger))
	return notifier
}

func eventLogWatcher(logger *logging.Logger) watchers.Watcher[event.Event] {
	return watchers.WatcherFunc[event.Event](func(_ context.Context, received event.Event) error {
		if received == nil || logger == nil {
			return nil
		}
		fields := map[string]string{
			"watchify.category": "notify",
			"type":              received.Type(),
		}
		switch typed := received.(type) {
		case event.FileEvent:
			fields["path"] = typed.Path
			fields["operation"] = typed.Operation
		case event.ProcessEvent:
			fields["command"] = typed.Command
			if typed.EventType == event.TypeProcessExit {
				fields["exit_code"] = strconv.Itoa(typed.ExitCode)
			}
		case event.WatchErrorEvent:
			fields["path"] = typed.Path
			fields["reason"] = typed.Reason
		}
		logger.Info("event delivered", fields)
		return nil
	})
}
