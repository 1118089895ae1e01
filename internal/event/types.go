package event

import "time"

// Event represents a typed event with an occurrence timestamp.
type Event interface {
	Type() string
	Timestamp() time.Time
}

const (
	TypeFileChanged   = "file_changed"
	TypeWatchError    = "watch_error"
	TypeProcessOutput = "proc_output"
	TypeProcessExit   = "proc_exit"
	TypeSpyTriggered  = "spy_triggered"
)

// FileEvent represents a filesystem change.
type FileEvent struct {
	EventType  string
	Path       string
	Operation  string
	OccurredAt time.Time
}

func NewFileEvent(path, operation string) FileEvent {
	return FileEvent{
		EventType:  TypeFileChanged,
		Path:       path,
		Operation:  operation,
		OccurredAt: time.Now().UTC(),
	}
}

func (e FileEvent) Type() string {
	return e.EventType
}

func (e FileEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// ProcessEvent captures output and lifecycle changes of a watched process.
type ProcessEvent struct {
	EventType  string
	Command    string
	Line       string
	ExitCode   int
	OccurredAt time.Time
}

func NewProcessOutputEvent(command, line string) ProcessEvent {
	return ProcessEvent{
		EventType:  TypeProcessOutput,
		Command:    command,
		Line:       line,
		OccurredAt: time.Now().UTC(),
	}
}

func NewProcessExitEvent(command string, exitCode int) ProcessEvent {
	return ProcessEvent{
		EventType:  TypeProcessExit,
		Command:    command,
		ExitCode:   exitCode,
		OccurredAt: time.Now().UTC(),
	}
}

func (e ProcessEvent) Type() string {
	return e.EventType
}

func (e ProcessEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// ConfigEvent captures configuration changes.
type ConfigEvent struct {
	EventType  string
	Path       string
	ChangeType string
	OccurredAt time.Time
}

func NewConfigEvent(path, changeType string) ConfigEvent {
	return ConfigEvent{
		EventType:  "config_" + changeType,
		Path:       path,
		ChangeType: changeType,
		OccurredAt: time.Now().UTC(),
	}
}

func (e ConfigEvent) Type() string {
	return e.EventType
}

func (e ConfigEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// SpyEvent captures an interception point firing.
type SpyEvent struct {
	EventType  string
	Target     string
	Trigger    string
	OccurredAt time.Time
}

func NewSpyEvent(target, trigger string) SpyEvent {
	return SpyEvent{
		EventType:  TypeSpyTriggered,
		Target:     target,
		Trigger:    trigger,
		OccurredAt: time.Now().UTC(),
	}
}

func (e SpyEvent) Type() string {
	return e.EventType
}

func (e SpyEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// WatchErrorEvent reports an unrecoverable watch failure.
type WatchErrorEvent struct {
	EventType  string
	Path       string
	Reason     string
	OccurredAt time.Time
}

func NewWatchErrorEvent(path, reason string) WatchErrorEvent {
	return WatchErrorEvent{
		EventType:  TypeWatchError,
		Path:       path,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

func (e WatchErrorEvent) Type() string {
	return e.EventType
}

func (e WatchErrorEvent) Timestamp() time.Time {
	return e.OccurredAt
}
