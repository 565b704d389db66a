package flags

import (
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func resetFlagVars() {
	ConfigFile = ""
	LogPath = ""
	LogLevel = ""
}

func TestInitFlags_Defaults(t *testing.T) {
	resetFlagVars()
	t.Cleanup(resetFlagVars)

	t.Setenv(EnvVarConfigFile, "")
	t.Setenv(EnvVarLogPath, "")
	t.Setenv(EnvVarLogLevel, "")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(fs)

	require.Equal(t, DefaultConfigFile, ConfigFile)
	require.Equal(t, DefaultLogPath, LogPath)
	require.Equal(t, DefaultLogLevel, LogLevel)
}

func TestInitFlags_EnvVarFallback(t *testing.T) {
	resetFlagVars()
	t.Cleanup(resetFlagVars)

	cfgPath := filepath.Join(t.TempDir(), "custom.toml")
	t.Setenv(EnvVarConfigFile, cfgPath)
	t.Setenv(EnvVarLogPath, "/tmp/toolhostd.log")
	t.Setenv(EnvVarLogLevel, "DEBUG")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(fs)

	require.Equal(t, cfgPath, ConfigFile)
	require.Equal(t, "/tmp/toolhostd.log", LogPath)
	require.Equal(t, "debug", LogLevel)
}

func TestInitFlags_FlagOverridesEnv(t *testing.T) {
	resetFlagVars()
	t.Cleanup(resetFlagVars)

	t.Setenv(EnvVarConfigFile, "/env/path.toml")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(fs)

	require.NoError(t, fs.Parse([]string{"--config-file", "/flag/path.toml"}))
	require.Equal(t, "/flag/path.toml", ConfigFile)
}

func TestInitFlags_EnvWhitespaceIgnored(t *testing.T) {
	resetFlagVars()
	t.Cleanup(resetFlagVars)

	t.Setenv(EnvVarConfigFile, "   ")
	t.Setenv(EnvVarLogPath, "   ")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(fs)

	require.Equal(t, DefaultConfigFile, ConfigFile)
	require.Equal(t, DefaultLogPath, LogPath)
}
