package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry aggregates counters for event buses and watcher notification,
// exposed in Prometheus text format.
type Registry struct {
	events        sync.Map
	subscribers   sync.Map
	notify        sync.Map
	watchRestarts atomic.Int64
}

type eventStats struct {
	published atomic.Int64
	dropped   atomic.Int64
}

type subscriberCounts struct {
	filtered   atomic.Int64
	unfiltered atomic.Int64
}

type notifyStats struct {
	delivered atomic.Int64
	failed    atomic.Int64
}

var Default = &Registry{}

func (r *Registry) IncEventPublished(bus, eventType string) {
	if r == nil {
		return
	}
	r.eventStats(bus, eventType).published.Add(1)
}

func (r *Registry) IncEventDropped(bus, eventType string) {
	if r == nil {
		return
	}
	r.eventStats(bus, eventType).dropped.Add(1)
}

func (r *Registry) SetEventSubscriberCounts(bus string, filtered, unfiltered int) {
	if r == nil {
		return
	}
	counts := r.subscriberCounts(bus)
	counts.filtered.Store(int64(filtered))
	counts.unfiltered.Store(int64(unfiltered))
}

func (r *Registry) IncNotifyDelivered(watcher string) {
	if r == nil {
		return
	}
	r.notifyStats(watcher).delivered.Add(1)
}

func (r *Registry) IncNotifyFailed(watcher string) {
	if r == nil {
		return
	}
	r.notifyStats(watcher).failed.Add(1)
}

func (r *Registry) IncWatchRestarted() {
	if r == nil {
		return
	}
	r.watchRestarts.Add(1)
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	eventKeys := sortedKeys(&r.events)
	writeHelp(writer, "watchify_events_published_total", "Total events published per bus and type")
	fmt.Fprintln(writer, "# TYPE watchify_events_published_total counter")
	for _, key := range eventKeys {
		stats := r.eventStatsForKey(key)
		bus, eventType := splitKey(key)
		fmt.Fprintf(writer, "watchify_events_published_total{bus=%s,type=%s} %d\n",
			formatLabel(bus), formatLabel(eventType), stats.published.Load())
	}

	writeHelp(writer, "watchify_events_dropped_total", "Total events dropped per bus and type")
	fmt.Fprintln(writer, "# TYPE watchify_events_dropped_total counter")
	for _, key := range eventKeys {
		stats := r.eventStatsForKey(key)
		bus, eventType := splitKey(key)
		fmt.Fprintf(writer, "watchify_events_dropped_total{bus=%s,type=%s} %d\n",
			formatLabel(bus), formatLabel(eventType), stats.dropped.Load())
	}

	writeHelp(writer, "watchify_event_subscribers", "Active subscribers per bus")
	fmt.Fprintln(writer, "# TYPE watchify_event_subscribers gauge")
	for _, bus := range sortedKeys(&r.subscribers) {
		counts := r.subscriberCounts(bus)
		fmt.Fprintf(writer, "watchify_event_subscribers{bus=%s,kind=\"filtered\"} %d\n",
			formatLabel(bus), counts.filtered.Load())
		fmt.Fprintf(writer, "watchify_event_subscribers{bus=%s,kind=\"unfiltered\"} %d\n",
			formatLabel(bus), counts.unfiltered.Load())
	}

	notifyKeys := sortedKeys(&r.notify)
	writeHelp(writer, "watchify_notify_delivered_total", "Total notifications delivered per watcher")
	fmt.Fprintln(writer, "# TYPE watchify_notify_delivered_total counter")
	for _, watcher := range notifyKeys {
		fmt.Fprintf(writer, "watchify_notify_delivered_total{watcher=%s} %d\n",
			formatLabel(watcher), r.notifyStats(watcher).delivered.Load())
	}

	writeHelp(writer, "watchify_notify_failed_total", "Total notification failures per watcher")
	fmt.Fprintln(writer, "# TYPE watchify_notify_failed_total counter")
	for _, watcher := range notifyKeys {
		fmt.Fprintf(writer, "watchify_notify_failed_total{watcher=%s} %d\n",
			formatLabel(watcher), r.notifyStats(watcher).failed.Load())
	}

	writeCounter(writer, "watchify_watch_restarts_total", "Total filesystem watcher restarts", r.watchRestarts.Load())
	return nil
}

func (r *Registry) eventStats(bus, eventType string) *eventStats {
	return r.eventStatsForKey(joinKey(bus, eventType))
}

func (r *Registry) eventStatsForKey(key string) *eventStats {
	value, _ := r.events.LoadOrStore(key, &eventStats{})
	return value.(*eventStats)
}

func (r *Registry) subscriberCounts(bus string) *subscriberCounts {
	value, _ := r.subscribers.LoadOrStore(bus, &subscriberCounts{})
	return value.(*subscriberCounts)
}

func (r *Registry) notifyStats(watcher string) *notifyStats {
	if strings.TrimSpace(watcher) == "" {
		watcher = "unknown"
	}
	value, _ := r.notify.LoadOrStore(watcher, &notifyStats{})
	return value.(*notifyStats)
}

const keySeparator = "\x1f"

func joinKey(bus, eventType string) string {
	if strings.TrimSpace(bus) == "" {
		bus = "unknown"
	}
	if strings.TrimSpace(eventType) == "" {
		eventType = "unknown"
	}
	return bus + keySeparator + eventType
}

func splitKey(key string) (string, string) {
	parts := strings.SplitN(key, keySeparator, 2)
	if len(parts) != 2 {
		return key, "unknown"
	}
	return parts[0], parts[1]
}

func sortedKeys(values *sync.Map) []string {
	var keys []string
	values.Range(func(key, _ any) bool {
		if name, ok := key.(string); ok {
			keys = append(keys, name)
		}
		return true
	})
	sort.Strings(keys)
	return keys
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
