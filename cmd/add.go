package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haven-ai/toolhostd/internal/cmd"
	cmdopts "github.com/haven-ai/toolhostd/internal/cmd/options"
	"github.com/haven-ai/toolhostd/internal/config"
	"github.com/haven-ai/toolhostd/internal/flags"
)

// AddCmd should be used to represent the 'add' command.
type AddCmd struct {
	*cmd.BaseCmd
	Env         []string
	Shell       bool
	WindowsHide bool
	Format      cmd.OutputFormat
	cfgLoader   config.Loader
}

// NewAddCmd creates a newly configured (Cobra) command.
func NewAddCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &AddCmd{
		BaseCmd:   baseCmd,
		Format:    cmd.FormatText,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCommand := &cobra.Command{
		Use:   "add <server-name> <command> [args...]",
		Short: "Adds a tool server to the project configuration.",
		Long: `Adds a tool server to the project configuration.
The daemon spawns the given command and speaks the line-delimited JSON protocol
with it over stdin/stdout.`,
		RunE: c.run,
	}

	cobraCommand.Flags().StringArrayVar(
		&c.Env,
		"env",
		nil,
		"Environment variable for the server process as KEY=VALUE (can be repeated)",
	)

	cobraCommand.Flags().BoolVar(
		&c.Shell,
		"shell",
		false,
		"Run the command through the platform shell",
	)

	cobraCommand.Flags().BoolVar(
		&c.WindowsHide,
		"windows-hide",
		false,
		"Hide the console window on Windows hosts",
	)

	allowedFormats := cmd.AllowedOutputFormats()
	cobraCommand.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowedFormats.String()),
	)

	return cobraCommand, nil
}

// run is configured (via NewAddCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *AddCmd) run(cobraCmd *cobra.Command, args []string) error {
	handler, err := entryOutputHandler(c.Format, cobraCmd.OutOrStdout())
	if err != nil {
		return err
	}

	if len(args) < 2 {
		return handler.HandleError(fmt.Errorf("server name and command are required"))
	}

	name := strings.TrimSpace(args[0])
	command := strings.TrimSpace(args[1])
	if name == "" || command == "" {
		return handler.HandleError(fmt.Errorf("server name and command cannot be empty"))
	}

	env, err := parseEnvVars(c.Env)
	if err != nil {
		return handler.HandleError(err)
	}

	entry := config.ServerEntry{
		Name:        name,
		Command:     command,
		Args:        args[2:],
		Env:         env,
		Shell:       c.Shell,
		WindowsHide: c.WindowsHide,
	}

	cfg, err := c.cfgLoader.Load(flags.ConfigFile)
	if err != nil {
		return handler.HandleError(err)
	}

	if err := cfg.AddServer(entry); err != nil {
		return handler.HandleError(fmt.Errorf("failed to add server '%s': %w", name, err))
	}

	c.Logger().Info("server added to config", "server", name, "command", command)

	return handler.HandleResult(entry)
}

// parseEnvVars converts repeated KEY=VALUE flags into a map.
func parseEnvVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid env var '%s', expected KEY=VALUE", pair)
		}
		env[key] = value
	}
	return env, nil
}
