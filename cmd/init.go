package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/haven-ai/toolhostd/internal/cmd"
	cmdopts "github.com/haven-ai/toolhostd/internal/cmd/options"
	"github.com/haven-ai/toolhostd/internal/config"
	"github.com/haven-ai/toolhostd/internal/flags"
)

// InitCmd should be used to represent the 'init' command.
type InitCmd struct {
	*cmd.BaseCmd
	cfgLoader config.Loader
}

// NewInitCmd creates a newly configured (Cobra) command.
func NewInitCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &InitCmd{
		BaseCmd:   baseCmd,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCommand := &cobra.Command{
		Use:   "init",
		Short: "Initializes a new toolhostd project configuration file",
		RunE:  c.run,
	}

	return cobraCommand, nil
}

// run is configured (via NewInitCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *InitCmd) run(cobraCmd *cobra.Command, _ []string) error {
	initFilePath := flags.ConfigFile

	if flags.ConfigFile == flags.DefaultConfigFile {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		initFilePath = filepath.Join(cwd, flags.DefaultConfigFile)
	}

	if err := c.cfgLoader.Init(initFilePath); err != nil {
		return err
	}

	fmt.Fprintf(cobraCmd.OutOrStdout(), "Created config file: %s\n", initFilePath)
	return nil
}
