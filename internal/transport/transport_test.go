package transport

import (
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/haven-ai/toolhostd/internal/errors"
	"github.com/haven-ai/toolhostd/internal/protocol"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on POSIX shell and signals")
	}
}

func testLogger() hclog.Logger {
	return hclog.NewNullLogger()
}

// collector gathers transport events for assertions.
type collector struct {
	mu          sync.Mutex
	messages    []protocol.Message
	parseErrors []string
	diagnostics []string
	exits       []ExitStatus
	exited      chan struct{}
}

func newCollector() *collector {
	return &collector{exited: make(chan struct{})}
}

func (c *collector) handlers() Handlers {
	return Handlers{
		OnMessage: func(m protocol.Message) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.messages = append(c.messages, m)
		},
		OnParseError: func(line string, _ error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.parseErrors = append(c.parseErrors, line)
		},
		OnDiagnostic: func(line string) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.diagnostics = append(c.diagnostics, line)
		},
		OnExit: func(s ExitStatus) {
			c.mu.Lock()
			c.exits = append(c.exits, s)
			c.mu.Unlock()
			close(c.exited)
		},
	}
}

func (c *collector) waitExit(t *testing.T) ExitStatus {
	t.Helper()
	select {
	case <-c.exited:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for process exit")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.exits, 1)
	return c.exits[0]
}

func TestStart_SpawnError(t *testing.T) {
	t.Parallel()

	_, err := Start(testLogger(), Config{Command: "definitely-not-a-real-binary-xyz"}, Handlers{})
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrSpawn)
}

func TestTransport_MessageFraming(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	c := newCollector()

	// Emit two messages split across one stream, plus a blank line.
	script := `printf '{"id":"1","result":{"a":1}}\n\n{"id":"2","error":{"code":-1,"message":"bad"}}\n'`
	tr, err := Start(testLogger(), Config{Command: script, Shell: true}, c.handlers())
	require.NoError(t, err)
	defer tr.Dispose()

	c.waitExit(t)

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.messages, 2)
	require.Equal(t, protocol.KindResponse, c.messages[0].Kind)
	require.Equal(t, "1", c.messages[0].Response.ID)
	require.Equal(t, protocol.KindResponse, c.messages[1].Kind)
	require.NotNil(t, c.messages[1].Response.Error)
	require.Equal(t, -1, c.messages[1].Response.Error.Code)
	require.Empty(t, c.parseErrors)
}

func TestTransport_ParseErrorDoesNotCascade(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	c := newCollector()

	script := `printf 'not json at all\n{"id":"1","result":{}}\n'`
	tr, err := Start(testLogger(), Config{Command: script, Shell: true}, c.handlers())
	require.NoError(t, err)
	defer tr.Dispose()

	c.waitExit(t)

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Equal(t, []string{"not json at all"}, c.parseErrors)
	require.Len(t, c.messages, 1)
	require.Equal(t, "1", c.messages[0].Response.ID)
}

func TestTransport_DiagnosticsIsolated(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	c := newCollector()

	script := `printf 'starting up\nready\n' >&2`
	tr, err := Start(testLogger(), Config{Command: script, Shell: true}, c.handlers())
	require.NoError(t, err)
	defer tr.Dispose()

	c.waitExit(t)

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Equal(t, []string{"starting up", "ready"}, c.diagnostics)
	require.Empty(t, c.messages)
	require.Empty(t, c.parseErrors)
}

func TestTransport_WriteRoundTrip(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	c := newCollector()

	// cat echoes each framed request straight back.
	tr, err := Start(testLogger(), Config{Command: "cat"}, c.handlers())
	require.NoError(t, err)

	require.NoError(t, tr.Write(protocol.Request{ID: "42", Method: "search", Params: map[string]any{"q": "a"}}))

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.messages) == 1
	}, 5*time.Second, 10*time.Millisecond)

	tr.Dispose()
	c.waitExit(t)

	c.mu.Lock()
	defer c.mu.Unlock()
	// A request echoed back has no result or error, so it is unknown traffic.
	require.Equal(t, protocol.KindUnknown, c.messages[0].Kind)
	require.Contains(t, string(c.messages[0].Raw), `"id":"42"`)
}

func TestTransport_ExitStatus(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	tests := []struct {
		name     string
		script   string
		wantCode int
	}{
		{name: "clean exit", script: "exit 0", wantCode: 0},
		{name: "failure exit", script: "exit 3", wantCode: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := newCollector()
			tr, err := Start(testLogger(), Config{Command: tc.script, Shell: true}, c.handlers())
			require.NoError(t, err)
			defer tr.Dispose()

			status := c.waitExit(t)
			require.Equal(t, tc.wantCode, status.Code)
			require.Empty(t, status.Signal)
		})
	}
}

func TestTransport_DisposeIdempotent(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	c := newCollector()
	tr, err := Start(testLogger(), Config{Command: "cat"}, c.handlers())
	require.NoError(t, err)

	require.True(t, tr.Alive())
	pid := tr.PID()
	require.Greater(t, pid, 0)

	tr.Dispose()
	tr.Dispose() // second call is a no-op

	c.waitExit(t)
	require.False(t, tr.Alive())

	err = tr.Write(protocol.Request{ID: "1", Method: "ping"})
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrWrite)
}

func TestTransport_DisposeUnblocksStalledWrite(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	c := newCollector()

	// A server that never reads stdin: a large write fills the pipe and parks
	// in the kernel with writeMu held.
	tr, err := Start(testLogger(), Config{Command: "exec sleep 30", Shell: true}, c.handlers())
	require.NoError(t, err)

	writeDone := make(chan error, 1)
	go func() {
		writeDone <- tr.Write(map[string]string{"blob": strings.Repeat("x", 256*1024)})
	}()

	// Let the writer fill the pipe and block.
	time.Sleep(100 * time.Millisecond)

	disposed := make(chan struct{})
	go func() {
		tr.Dispose()
		close(disposed)
	}()

	select {
	case <-disposed:
	case <-time.After(3 * time.Second):
		t.Fatal("Dispose blocked behind a stalled write")
	}

	select {
	case err := <-writeDone:
		require.Error(t, err)
		require.ErrorIs(t, err, errors.ErrWrite)
	case <-time.After(3 * time.Second):
		t.Fatal("stalled write was never released")
	}

	c.waitExit(t)
}

func TestTransport_EnvOverlay(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	c := newCollector()

	script := `printf '%s\n' "$TOOLHOSTD_TEST_VALUE" >&2`
	tr, err := Start(testLogger(), Config{
		Command: script,
		Shell:   true,
		Env:     map[string]string{"TOOLHOSTD_TEST_VALUE": "overlay-wins"},
	}, c.handlers())
	require.NoError(t, err)
	defer tr.Dispose()

	c.waitExit(t)

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Equal(t, []string{"overlay-wins"}, c.diagnostics)
}

func TestMergeEnvs(t *testing.T) {
	t.Parallel()

	got := mergeEnvs(
		[]string{"A=1", "B=2", "malformed"},
		[]string{"B=override", "C=3"},
	)
	sort.Strings(got)
	require.Equal(t, []string{"A=1", "B=override", "C=3"}, got)
}
