package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/haven-ai/toolhostd/internal/cmd"
	cmdopts "github.com/haven-ai/toolhostd/internal/cmd/options"
	"github.com/haven-ai/toolhostd/internal/cmd/output"
	"github.com/haven-ai/toolhostd/internal/config"
	"github.com/haven-ai/toolhostd/internal/flags"
	"github.com/haven-ai/toolhostd/internal/printer"
)

// ListCmd should be used to represent the 'list' command.
type ListCmd struct {
	*cmd.BaseCmd
	Format    cmd.OutputFormat
	cfgLoader config.Loader
}

// NewListCmd creates a newly configured (Cobra) command.
func NewListCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ListCmd{
		BaseCmd:   baseCmd,
		Format:    cmd.FormatText,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCommand := &cobra.Command{
		Use:   "list",
		Short: "Lists the tool servers in the project configuration.",
		RunE:  c.run,
	}

	allowedFormats := cmd.AllowedOutputFormats()
	cobraCommand.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowedFormats.String()),
	)

	return cobraCommand, nil
}

// run is configured (via NewListCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *ListCmd) run(cobraCmd *cobra.Command, _ []string) error {
	handler, err := c.outputHandler(cobraCmd.OutOrStdout())
	if err != nil {
		return err
	}

	cfg, err := c.cfgLoader.Load(flags.ConfigFile)
	if err != nil {
		return handler.HandleError(err)
	}

	return handler.HandleResults(cfg.ListServers()...)
}

func (c *ListCmd) outputHandler(w io.Writer) (output.Handler[config.ServerEntry], error) {
	if c.Format != cmd.FormatText {
		return entryOutputHandler(c.Format, w)
	}

	p := &printer.ServerEntryPrinter{}
	p.SetHeader(func(w io.Writer, count int) {
		fmt.Fprintf(w, "%d configured server(s):\n\n", count)
	})

	return output.NewTextHandler(w, p), nil
}
