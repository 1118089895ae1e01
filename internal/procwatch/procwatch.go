//go:build !windows

// Package procwatch runs a command under a pseudo-terminal and publishes its
// output lines and exit status as process events.
package procwatch

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"

	"watchify/internal/event"
	"watchify/internal/logging"
)

// Options controls process watching behavior.
type Options struct {
	Logger *logging.Logger
	Bus    *event.Bus[event.Event]
}

// Process is a command running under a pty whose output feeds the event bus.
type Process struct {
	command   string
	cmd       *exec.Cmd
	ptmx      *os.File
	bus       *event.Bus[event.Event]
	logger    *logging.Logger
	done      chan struct{}
	closeOnce sync.Once
	mutex     sync.Mutex
	exitCode  int
}

// Start launches the command in its own process group under a pty.
func Start(ctx context.Context, command string, args []string, options Options) (*Process, error) {
	if command == "" {
		return nil, errors.New("command is required")
	}
	if options.Bus == nil {
		return nil, errors.New("event bus is required")
	}

	cmd := exec.CommandContext(ctx, command, args...)
	// pty.Start sets Setsid, which already places the child in its own
	// process group; adding Setpgid on top makes setpgid fail with EPERM.
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), logging.LevelInfo, nil)
	}

	process := &Process{
		command:  commandLabel(command, args),
		cmd:      cmd,
		ptmx:     ptmx,
		bus:      options.Bus,
		logger:   logger,
		done:     make(chan struct{}),
		exitCode: -1,
	}

	go process.readLoop()
	return process, nil
}

// Command returns the label used in published events.
func (process *Process) Command() string {
	if process == nil {
		return ""
	}
	return process.command
}

// Wait blocks until the process exits or the context is cancelled.
func (process *Process) Wait(ctx context.Context) (int, error) {
	if process == nil {
		return -1, errors.New("process is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-process.done:
		return process.ExitCode(), nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// ExitCode reports the recorded exit status, -1 while still running.
func (process *Process) ExitCode() int {
	if process == nil {
		return -1
	}
	process.mutex.Lock()
	defer process.mutex.Unlock()
	return process.exitCode
}

// Close terminates the process group and releases the pty.
func (process *Process) Close() error {
	if process == nil {
		return nil
	}
	var closeErr error
	process.closeOnce.Do(func() {
		if process.cmd != nil && process.cmd.Process != nil {
			pgid := process.cmd.Process.Pid
			if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
				closeErr = err
			}
		}
		if process.ptmx != nil {
			if err := process.ptmx.Close(); err != nil && !errors.Is(err, os.ErrClosed) && closeErr == nil {
				closeErr = err
			}
		}
	})
	return closeErr
}

func (process *Process) readLoop() {
	defer close(process.done)

	scanner := bufio.NewScanner(process.ptmx)
	scanner.Buffer(make([]byte, 0, 4096), 256*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		process.bus.Publish(event.NewProcessOutputEvent(process.command, line))
	}

	code := process.waitExit()
	process.mutex.Lock()
	process.exitCode = code
	process.mutex.Unlock()

	process.bus.Publish(event.NewProcessExitEvent(process.command, code))
	process.logger.Debug("process exited", map[string]string{
		"watchify.category": "procwatch",
		"command":           process.command,
		"exit_code":         strconv.Itoa(code),
	})
}

func (process *Process) waitExit() int {
	if process.cmd == nil {
		return -1
	}
	err := process.cmd.Wait()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func commandLabel(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}
