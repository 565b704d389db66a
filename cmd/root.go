package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/haven-ai/toolhostd/internal/cmd"
	cmdopts "github.com/haven-ai/toolhostd/internal/cmd/options"
	"github.com/haven-ai/toolhostd/internal/flags"
)

// RootCmd should be used to represent the root 'toolhostd' command.
type RootCmd struct {
	*cmd.BaseCmd
}

// Execute configures and runs the root command, returning any error to the caller.
func Execute() error {
	logger, err := configureLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error configuring logger: %s\n", err)
		os.Exit(1)
	}

	rootCmd, err := NewRootCmd(logger)
	if err != nil {
		return err
	}

	return rootCmd.Execute()
}

// NewRootCmd creates a newly configured (Cobra) root command with all
// subcommands attached.
func NewRootCmd(logger hclog.Logger) (*cobra.Command, error) {
	c := &RootCmd{
		BaseCmd: &cmd.BaseCmd{},
	}
	c.SetLogger(logger)

	rootCmd := &cobra.Command{
		Use:          "toolhostd <command> [args]",
		Short:        "'toolhostd' supervises external tool server processes and exposes them over HTTP.",
		Long:         c.longDescription(),
		SilenceUsage: true,
		Version:      cmd.Version(),
	}

	// Global flags.
	flags.InitFlags(rootCmd.PersistentFlags())

	subcommands := []func(*cmd.BaseCmd, ...cmdopts.CmdOption) (*cobra.Command, error){
		NewInitCmd,
		NewAddCmd,
		NewRemoveCmd,
		NewListCmd,
		NewDaemonCmd,
	}
	for _, newCmd := range subcommands {
		sub, err := newCmd(c.BaseCmd)
		if err != nil {
			return nil, err
		}
		rootCmd.AddCommand(sub)
	}

	return rootCmd, nil
}

func (c *RootCmd) longDescription() string {
	return `The 'toolhostd' CLI manages a project's tool server dependencies and runs the
daemon that spawns, supervises and routes requests to those servers.`
}

func configureLogger() (hclog.Logger, error) {
	logPath := strings.TrimSpace(os.Getenv(flags.EnvVarLogPath))

	// If TOOLHOSTD_LOG_PATH is not set, don't log anywhere.
	logOutput := io.Discard

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file (%s): %w", logPath, err)
		}
		logOutput = f
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "toolhostd",
		Level:  hclog.LevelFromString(getLogLevel()),
		Output: logOutput,
	})

	return logger, nil
}

func getLogLevel() string {
	lvl := strings.ToLower(os.Getenv(flags.EnvVarLogLevel))
	switch lvl {
	case "trace", "debug", "info", "warn", "error", "off":
		return lvl
	default:
		return flags.DefaultLogLevel
	}
}
