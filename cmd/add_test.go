package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haven-ai/toolhostd/internal/cmd"
	cmdopts "github.com/haven-ai/toolhostd/internal/cmd/options"
	"github.com/haven-ai/toolhostd/internal/config"
)

type fakeConfig struct {
	addCalled    bool
	removeCalled bool
	removedName  string
	entries      []config.ServerEntry
	addErr       error
	removeErr    error
}

func (f *fakeConfig) AddServer(entry config.ServerEntry) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.addCalled = true
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeConfig) RemoveServer(name string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removeCalled = true
	f.removedName = name
	return nil
}

func (f *fakeConfig) ListServers() []config.ServerEntry {
	return f.entries
}

func (f *fakeConfig) SaveConfig() error {
	return nil
}

type fakeLoader struct {
	cfg *fakeConfig
	err error
}

func (f *fakeLoader) Init(_ string) error {
	return f.err
}

func (f *fakeLoader) Load(_ string) (config.Modifier, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cfg, nil
}

func TestAddCmd_Success(t *testing.T) {
	cfg := &fakeConfig{}

	addCmd, err := NewAddCmd(&cmd.BaseCmd{}, cmdopts.WithConfigLoader(&fakeLoader{cfg: cfg}))
	require.NoError(t, err)

	var out bytes.Buffer
	addCmd.SetOut(&out)
	addCmd.SetArgs([]string{
		"time", "time-server", "--utc",
		"--env", "TZ=UTC",
		"--shell",
	})

	require.NoError(t, addCmd.Execute())
	require.True(t, cfg.addCalled)

	entry := cfg.entries[0]
	assert.Equal(t, "time", entry.Name)
	assert.Equal(t, "time-server", entry.Command)
	assert.Equal(t, []string{"--utc"}, entry.Args)
	assert.Equal(t, map[string]string{"TZ": "UTC"}, entry.Env)
	assert.True(t, entry.Shell)

	assert.Contains(t, out.String(), "✓ Server 'time'")
	assert.Contains(t, out.String(), "command: time-server --utc")
}

func TestAddCmd_JSONOutput(t *testing.T) {
	cfg := &fakeConfig{}

	addCmd, err := NewAddCmd(&cmd.BaseCmd{}, cmdopts.WithConfigLoader(&fakeLoader{cfg: cfg}))
	require.NoError(t, err)

	var out bytes.Buffer
	addCmd.SetOut(&out)
	addCmd.SetArgs([]string{"time", "time-server", "--format", "json"})

	require.NoError(t, addCmd.Execute())
	assert.Contains(t, out.String(), `"result"`)
	assert.Contains(t, out.String(), `"name": "time"`)
}

func TestAddCmd_MissingArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no args", args: []string{}},
		{name: "name only", args: []string{"time"}},
		{name: "empty name", args: []string{"  ", "time-server"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &fakeConfig{}

			addCmd, err := NewAddCmd(&cmd.BaseCmd{}, cmdopts.WithConfigLoader(&fakeLoader{cfg: cfg}))
			require.NoError(t, err)

			addCmd.SetOut(&bytes.Buffer{})
			addCmd.SetErr(&bytes.Buffer{})
			addCmd.SetArgs(tc.args)

			require.Error(t, addCmd.Execute())
			assert.False(t, cfg.addCalled)
		})
	}
}

func TestAddCmd_InvalidEnvVar(t *testing.T) {
	cfg := &fakeConfig{}

	addCmd, err := NewAddCmd(&cmd.BaseCmd{}, cmdopts.WithConfigLoader(&fakeLoader{cfg: cfg}))
	require.NoError(t, err)

	addCmd.SetOut(&bytes.Buffer{})
	addCmd.SetErr(&bytes.Buffer{})
	addCmd.SetArgs([]string{"time", "time-server", "--env", "NOT_A_PAIR"})

	err = addCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected KEY=VALUE")
	assert.False(t, cfg.addCalled)
}

func TestAddCmd_DuplicateEntry(t *testing.T) {
	cfg := &fakeConfig{addErr: errors.New("server with name 'time' already exists")}

	addCmd, err := NewAddCmd(&cmd.BaseCmd{}, cmdopts.WithConfigLoader(&fakeLoader{cfg: cfg}))
	require.NoError(t, err)

	addCmd.SetOut(&bytes.Buffer{})
	addCmd.SetErr(&bytes.Buffer{})
	addCmd.SetArgs([]string{"time", "time-server"})

	err = addCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
