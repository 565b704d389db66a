package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haven-ai/toolhostd/internal/cmd"
	cmdopts "github.com/haven-ai/toolhostd/internal/cmd/options"
)

func TestRemoveCmd_Success(t *testing.T) {
	cfg := &fakeConfig{}

	removeCmd, err := NewRemoveCmd(&cmd.BaseCmd{}, cmdopts.WithConfigLoader(&fakeLoader{cfg: cfg}))
	require.NoError(t, err)

	var out bytes.Buffer
	removeCmd.SetOut(&out)
	removeCmd.SetArgs([]string{"time"})

	require.NoError(t, removeCmd.Execute())
	require.True(t, cfg.removeCalled)
	assert.Equal(t, "time", cfg.removedName)
	assert.Contains(t, out.String(), "✓ Removed server 'time'")
}

func TestRemoveCmd_MissingName(t *testing.T) {
	cfg := &fakeConfig{}

	removeCmd, err := NewRemoveCmd(&cmd.BaseCmd{}, cmdopts.WithConfigLoader(&fakeLoader{cfg: cfg}))
	require.NoError(t, err)

	removeCmd.SetOut(&bytes.Buffer{})
	removeCmd.SetErr(&bytes.Buffer{})
	removeCmd.SetArgs([]string{})

	require.Error(t, removeCmd.Execute())
	assert.False(t, cfg.removeCalled)
}

func TestRemoveCmd_UnknownServer(t *testing.T) {
	cfg := &fakeConfig{removeErr: errors.New("server 'ghost' not found")}

	removeCmd, err := NewRemoveCmd(&cmd.BaseCmd{}, cmdopts.WithConfigLoader(&fakeLoader{cfg: cfg}))
	require.NoError(t, err)

	removeCmd.SetOut(&bytes.Buffer{})
	removeCmd.SetErr(&bytes.Buffer{})
	removeCmd.SetArgs([]string{"ghost"})

	err = removeCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
