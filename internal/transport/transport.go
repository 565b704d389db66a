// Package transport owns one spawned tool server process and its three pipes,
// turning the stdout byte stream into discrete newline-delimited JSON messages
// and isolating stderr as diagnostics.
package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/haven-ai/toolhostd/internal/errors"
	"github.com/haven-ai/toolhostd/internal/protocol"
)

const (
	// DisposeGracePeriod is how long Dispose waits after the termination signal
	// before forcefully killing the process.
	DisposeGracePeriod = 1 * time.Second

	// initialScanBuffer is the starting size of the line scanner's buffer.
	initialScanBuffer = 64 * 1024

	// maxLineSize is the largest single framed message accepted from a server.
	maxLineSize = 1024 * 1024
)

// Config describes how to spawn one tool server process.
type Config struct {
	// Command is the executable to spawn.
	Command string

	// Args are passed to the command verbatim.
	Args []string

	// Env is merged over the host's environment.
	Env map[string]string

	// Shell wraps the command in the platform shell when set.
	Shell bool

	// WindowsHide suppresses the console window on Windows hosts.
	WindowsHide bool
}

// ExitStatus describes how the process ended.
type ExitStatus struct {
	// Code is the exit code, or -1 when the process was signaled.
	Code int

	// Signal is the terminating signal name, empty when the exit was by code.
	Signal string

	// Err is the error returned by waiting on the process, if any.
	Err error
}

// Handlers receive transport events. All handlers are invoked from the
// transport's reader goroutines; a nil handler is skipped.
type Handlers struct {
	// OnMessage receives every successfully decoded protocol message.
	OnMessage func(protocol.Message)

	// OnParseError receives each malformed stdout line. One bad line never
	// affects subsequent lines.
	OnParseError func(line string, err error)

	// OnDiagnostic receives stderr lines verbatim; they are never parsed as protocol.
	OnDiagnostic func(line string)

	// OnExit fires exactly once when the process has exited and all pipes drained.
	OnExit func(ExitStatus)
}

// Transport owns a running tool server process. Exactly one live Transport may
// exist per managed server at a time; that invariant is enforced by the owner.
type Transport struct {
	logger   hclog.Logger
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	handlers Handlers

	writeMu  sync.Mutex
	disposed atomic.Bool

	// done is closed once the process has exited and been reaped.
	done chan struct{}
}

// Start spawns the configured process and begins reading its output streams.
// It fails with a wrapped errors.ErrSpawn when the process cannot be launched
// or its pipes are unavailable.
func Start(logger hclog.Logger, cfg Config, handlers Handlers) (*Transport, error) {
	cmd := buildCommand(cfg)
	cmd.Env = environ(cfg.Env)
	applySysProcAttr(cmd, cfg)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %w", errors.ErrSpawn, err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %w", errors.ErrSpawn, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %w", errors.ErrSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrSpawn, err)
	}

	t := &Transport{
		logger:   logger.Named("transport"),
		cmd:      cmd,
		stdin:    stdin,
		handlers: handlers,
		done:     make(chan struct{}),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go t.readStdout(stdout, &readers)
	go t.readStderr(stderr, &readers)
	go t.reap(&readers)

	t.logger.Debug("process started", "pid", cmd.Process.Pid, "command", cfg.Command)

	return t, nil
}

// Write serializes payload to JSON, appends exactly one newline, and writes it
// to the process's stdin. It fails with a wrapped errors.ErrWrite once the
// transport is disposed or the stream is closed.
func (t *Transport) Write(payload any) error {
	if t.disposed.Load() {
		return fmt.Errorf("%w: transport disposed", errors.ErrWrite)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %w", errors.ErrWrite, err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrWrite, err)
	}

	return nil
}

// PID returns the child process id, or 0 when no process is running.
func (t *Transport) PID() int {
	if t.cmd == nil || t.cmd.Process == nil {
		return 0
	}
	return t.cmd.Process.Pid
}

// Alive reports whether the child still responds to a zero-signal liveness probe.
func (t *Transport) Alive() bool {
	select {
	case <-t.done:
		return false
	default:
	}

	if t.cmd == nil || t.cmd.Process == nil {
		return false
	}
	return probeProcess(t.cmd.Process) == nil
}

// Done is closed once the process has exited and been reaped.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Dispose signals termination, ends the input stream and, after a bounded
// grace period, forcefully kills the process. Calling it twice is a no-op.
func (t *Transport) Dispose() {
	if !t.disposed.CompareAndSwap(false, true) {
		return
	}

	// Signal first and close stdin without writeMu: a Write blocked on a full
	// stdin pipe holds writeMu inside the syscall until the close or the
	// process's death releases it, so waiting for the lock here could block
	// disposal indefinitely.
	if t.cmd.Process != nil {
		_ = terminateProcess(t.cmd.Process)
	}
	_ = t.stdin.Close()

	select {
	case <-t.done:
	case <-time.After(DisposeGracePeriod):
		t.logger.Warn("process did not exit within grace period, killing", "pid", t.PID())
		if t.cmd.Process != nil {
			_ = t.cmd.Process.Kill()
		}
		<-t.done
	}
}

// readStdout reassembles newline-delimited JSON messages from arbitrary-sized
// chunks. A parse failure on one line emits OnParseError for that line only.
func (t *Transport) readStdout(stdout io.Reader, readers *sync.WaitGroup) {
	defer readers.Done()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, initialScanBuffer), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		msg, err := protocol.Decode(line)
		if err != nil {
			t.logger.Warn("dropping malformed message line", "error", err)
			if t.handlers.OnParseError != nil {
				t.handlers.OnParseError(string(line), err)
			}
			continue
		}

		if t.handlers.OnMessage != nil {
			t.handlers.OnMessage(msg)
		}
	}

	if err := scanner.Err(); err != nil && !t.disposed.Load() {
		t.logger.Debug("stdout reader stopped", "error", err)
	}
}

// readStderr surfaces diagnostic lines verbatim.
func (t *Transport) readStderr(stderr io.Reader, readers *sync.WaitGroup) {
	defer readers.Done()

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, initialScanBuffer), maxLineSize)

	for scanner.Scan() {
		if t.handlers.OnDiagnostic != nil {
			t.handlers.OnDiagnostic(scanner.Text())
		}
	}
}

// reap waits for the pipes to drain and the process to exit, then reports the
// exit status exactly once.
func (t *Transport) reap(readers *sync.WaitGroup) {
	readers.Wait()
	err := t.cmd.Wait()
	close(t.done)

	status := ExitStatus{Code: -1, Err: err}
	if state := t.cmd.ProcessState; state != nil {
		status.Code = state.ExitCode()
		status.Signal = exitSignal(state)
	}

	t.logger.Debug("process exited", "pid", t.PID(), "code", status.Code, "signal", status.Signal)

	if t.handlers.OnExit != nil {
		t.handlers.OnExit(status)
	}
}
