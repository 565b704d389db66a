package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haven-ai/toolhostd/internal/cmd"
	cmdopts "github.com/haven-ai/toolhostd/internal/cmd/options"
	"github.com/haven-ai/toolhostd/internal/config"
)

func TestListCmd_Text(t *testing.T) {
	cfg := &fakeConfig{entries: []config.ServerEntry{
		{Name: "time", Command: "time-server", Args: []string{"--utc"}},
		{Name: "search", Command: "search-server"},
	}}

	listCmd, err := NewListCmd(&cmd.BaseCmd{}, cmdopts.WithConfigLoader(&fakeLoader{cfg: cfg}))
	require.NoError(t, err)

	var out bytes.Buffer
	listCmd.SetOut(&out)
	listCmd.SetArgs([]string{})

	require.NoError(t, listCmd.Execute())
	assert.Contains(t, out.String(), "2 configured server(s):")
	assert.Contains(t, out.String(), "✓ Server 'time'")
	assert.Contains(t, out.String(), "✓ Server 'search'")
}

func TestListCmd_YAML(t *testing.T) {
	cfg := &fakeConfig{entries: []config.ServerEntry{
		{Name: "time", Command: "time-server"},
	}}

	listCmd, err := NewListCmd(&cmd.BaseCmd{}, cmdopts.WithConfigLoader(&fakeLoader{cfg: cfg}))
	require.NoError(t, err)

	var out bytes.Buffer
	listCmd.SetOut(&out)
	listCmd.SetArgs([]string{"--format", "yaml"})

	require.NoError(t, listCmd.Execute())
	assert.Contains(t, out.String(), "results:")
	assert.Contains(t, out.String(), "name: time")
}

func TestListCmd_Empty(t *testing.T) {
	cfg := &fakeConfig{}

	listCmd, err := NewListCmd(&cmd.BaseCmd{}, cmdopts.WithConfigLoader(&fakeLoader{cfg: cfg}))
	require.NoError(t, err)

	var out bytes.Buffer
	listCmd.SetOut(&out)
	listCmd.SetArgs([]string{})

	require.NoError(t, listCmd.Execute())
	assert.Contains(t, out.String(), "No items found")
}
