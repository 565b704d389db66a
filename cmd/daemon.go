package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haven-ai/toolhostd/internal/cmd"
	cmdopts "github.com/haven-ai/toolhostd/internal/cmd/options"
	"github.com/haven-ai/toolhostd/internal/config"
	"github.com/haven-ai/toolhostd/internal/daemon"
	"github.com/haven-ai/toolhostd/internal/flags"
)

// DaemonCmd should be used to represent the 'daemon' command.
type DaemonCmd struct {
	*cmd.BaseCmd
	Dev       bool
	Addr      string
	CORS      bool
	Origins   []string
	cfgLoader config.Loader
}

// NewDaemonCmd creates a newly configured (Cobra) command.
func NewDaemonCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &DaemonCmd{
		BaseCmd:   baseCmd,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCommand := &cobra.Command{
		Use:   "daemon [--dev] [--addr]",
		Short: "Launches a 'toolhostd' daemon instance",
		Long: "Launches a 'toolhostd' daemon instance, which spawns and supervises the configured " +
			"tool servers and routes requests to them via an HTTP API",
		RunE: c.run,
	}

	cobraCommand.Flags().BoolVar(
		&c.Dev,
		"dev",
		false,
		"Run the daemon in development-focused mode",
	)

	cobraCommand.Flags().StringVar(
		&c.Addr,
		"addr",
		"0.0.0.0:8090",
		"Address for the daemon to bind (not applicable in --dev mode)",
	)

	cobraCommand.Flags().BoolVar(
		&c.CORS,
		"cors",
		false,
		"Enable CORS for the HTTP API",
	)

	cobraCommand.Flags().StringSliceVar(
		&c.Origins,
		"cors-origin",
		nil,
		"Allowed CORS origin (can be repeated, implies --cors)",
	)

	cobraCommand.MarkFlagsMutuallyExclusive("dev", "addr")

	return cobraCommand, nil
}

// run is configured (via NewDaemonCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *DaemonCmd) run(cobraCmd *cobra.Command, _ []string) error {
	logger := c.Logger()

	addr := strings.TrimSpace(c.Addr)

	// Override address for dev mode.
	if c.Dev {
		devAddr := "localhost:8090"
		logger.Info("Development-focused mode", "addr", addr, "override", devAddr)
		addr = devAddr
	}

	cfg, err := c.cfgLoader.Load(flags.ConfigFile)
	if err != nil {
		return err
	}

	deps, err := daemon.NewDependencies(logger, addr, cfg.ListServers())
	if err != nil {
		return fmt.Errorf("error configuring toolhostd daemon: %w", err)
	}

	var daemonOpts []daemon.Option
	if c.CORS || len(c.Origins) > 0 {
		origins := c.Origins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		daemonOpts = append(daemonOpts, daemon.WithAPIOptions(
			daemon.WithCORSEnabled(true),
			daemon.WithCORSAllowOrigins(origins),
		))
	}

	d, err := daemon.NewDaemon(deps, daemonOpts...)
	if err != nil {
		return fmt.Errorf("failed to create toolhostd daemon instance: %w", err)
	}

	// Create the signal handling context for the application.
	daemonCtx, daemonCtxCancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer daemonCtxCancel()

	if c.Dev {
		fmt.Fprintf(
			cobraCmd.OutOrStdout(),
			"toolhostd daemon running in 'dev' mode.\n\n  API: http://%s/api/v1\n  Docs: http://%s/docs\n\nPress Ctrl+C to stop.\n",
			addr, addr,
		)
	}

	if err := d.StartAndManage(daemonCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
