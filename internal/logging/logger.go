package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const DefaultBufferSize = 1000

// streamBufferSize is the per-subscriber channel depth; a subscriber that
// falls further behind loses entries rather than blocking the logger.
const streamBufferSize = 100

// Logger is a leveled, field-structured logger. Entries go three ways: to the
// output writer as logfmt lines, into a ring buffer for retrieval over the
// API, and to any live stream subscribers. With() returns child loggers that
// share the same sink state but carry extra base fields.
type Logger struct {
	sink        *logSink
	minLevel    Level
	baseContext map[string]string
}

// logSink is the state shared by a logger and all its With() children.
type logSink struct {
	mu      sync.Mutex
	buffer  *LogBuffer
	output  *log.Logger
	streams map[uint64]chan LogEntry
	lastID  uint64
}

func NewLogger(buffer *LogBuffer, minLevel Level) *Logger {
	return NewLoggerWithOutput(buffer, minLevel, os.Stdout)
}

func NewLoggerWithOutput(buffer *LogBuffer, minLevel Level, output io.Writer) *Logger {
	if buffer == nil {
		buffer = NewLogBuffer(DefaultBufferSize)
	}
	if output == nil {
		output = io.Discard
	}
	return &Logger{
		sink: &logSink{
			buffer:  buffer,
			output:  log.New(output, "", log.LstdFlags),
			streams: make(map[uint64]chan LogEntry),
		},
		minLevel: normalizeLevel(minLevel),
	}
}

func (l *Logger) Buffer() *LogBuffer {
	if l == nil {
		return nil
	}
	return l.sink.buffer
}

// Subscribe returns a channel of entries logged from now on. Cancel closes
// the channel and releases the subscription.
func (l *Logger) Subscribe() (<-chan LogEntry, func()) {
	if l == nil || l.sink == nil {
		return nil, func() {}
	}

	sink := l.sink
	ch := make(chan LogEntry, streamBufferSize)

	sink.mu.Lock()
	sink.lastID++
	id := sink.lastID
	sink.streams[id] = ch
	sink.mu.Unlock()

	return ch, func() {
		sink.mu.Lock()
		stream, ok := sink.streams[id]
		delete(sink.streams, id)
		sink.mu.Unlock()
		if ok {
			close(stream)
		}
	}
}

// With returns a logger that adds the given fields to every entry.
func (l *Logger) With(fields map[string]string) *Logger {
	if l == nil {
		return l
	}
	return &Logger{
		sink:        l.sink,
		minLevel:    l.minLevel,
		baseContext: cloneFields(l.baseContext, fields),
	}
}

func (l *Logger) Debug(message string, fields map[string]string) {
	l.log(LevelDebug, message, fields)
}

func (l *Logger) Info(message string, fields map[string]string) {
	l.log(LevelInfo, message, fields)
}

func (l *Logger) Warn(message string, fields map[string]string) {
	l.log(LevelWarning, message, fields)
}

func (l *Logger) Error(message string, fields map[string]string) {
	l.log(LevelError, message, fields)
}

func (l *Logger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	return levelRank(level) >= levelRank(l.minLevel)
}

func (l *Logger) log(level Level, message string, fields map[string]string) {
	if l == nil || !l.Enabled(level) {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Context:   cloneFields(l.baseContext, fields),
	}
	l.sink.emit(entry)
}

func (sink *logSink) emit(entry LogEntry) {
	if sink == nil {
		return
	}
	if sink.buffer != nil {
		sink.buffer.Add(entry)
	}

	sink.mu.Lock()
	streams := make([]chan LogEntry, 0, len(sink.streams))
	for _, stream := range sink.streams {
		streams = append(streams, stream)
	}
	sink.mu.Unlock()
	for _, stream := range streams {
		select {
		case stream <- entry:
		default:
		}
	}

	if sink.output != nil {
		sink.output.Print(formatEntry(entry))
	}
}

func normalizeLevel(level Level) Level {
	switch level {
	case LevelDebug, LevelInfo, LevelWarning, LevelError:
		return level
	default:
		return LevelInfo
	}
}

func levelRank(level Level) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarning:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

func ParseLevel(value string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warning", "warn":
		return LevelWarning, true
	case "error":
		return LevelError, true
	default:
		return "", false
	}
}

func LevelAtLeast(level, minLevel Level) bool {
	if minLevel == "" {
		return true
	}
	return levelRank(level) >= levelRank(minLevel)
}

func cloneFields(base, extra map[string]string) map[string]string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	combined := make(map[string]string, len(base)+len(extra))
	for key, value := range base {
		combined[key] = value
	}
	for key, value := range extra {
		combined[key] = value
	}
	return combined
}

// formatEntry renders an entry as a logfmt line with sorted field keys.
func formatEntry(entry LogEntry) string {
	builder := strings.Builder{}
	builder.WriteString("level=")
	builder.WriteString(string(entry.Level))
	builder.WriteString(" msg=")
	builder.WriteString(strconv.Quote(entry.Message))

	keys := make([]string, 0, len(entry.Context))
	for key := range entry.Context {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&builder, " %s=%s", key, strconv.Quote(entry.Context[key]))
	}
	return builder.String()
}
