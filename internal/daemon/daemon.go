package daemon

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/haven-ai/toolhostd/internal/domain"
	"github.com/haven-ai/toolhostd/internal/supervisor"
)

// Daemon wires together the server registry, the health monitor and the HTTP
// API, and manages their lifecycles as a single unit.
// NewDaemon should be used to create instances of Daemon.
type Daemon struct {
	logger       hclog.Logger
	registry     *supervisor.Registry
	monitor      *supervisor.Monitor
	apiServer    *APIServer
	startTimeout time.Duration
}

// NewDaemon creates a new Daemon from the given dependencies and options.
func NewDaemon(deps Dependencies, opt ...Option) (*Daemon, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies for daemon: %w", err)
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid daemon options: %w", err)
	}

	logger := deps.Logger.Named("daemon")

	registry, err := supervisor.NewRegistry(deps.Logger, deps.ServerEntries, opts.SupervisorOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server registry: %w", err)
	}

	monitor := supervisor.NewMonitor(deps.Logger, registry)

	apiDeps, err := NewAPIDependencies(deps.Logger, registry, registry.Health(), deps.APIAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create API dependencies: %w", err)
	}

	apiServer, err := NewAPIServer(apiDeps, opts.APIOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API server: %w", err)
	}

	return &Daemon{
		logger:       logger,
		registry:     registry,
		monitor:      monitor,
		apiServer:    apiServer,
		startTimeout: opts.StartTimeout,
	}, nil
}

// StartAndManage starts all configured tool servers, the health monitor and
// the HTTP API, then blocks until the context is canceled or a component
// fails. All managed servers are stopped before it returns.
func (d *Daemon) StartAndManage(ctx context.Context) error {
	defer func() {
		if err := d.registry.Dispose(); err != nil {
			d.logger.Error("Error disposing server registry", "error", err)
		}
	}()

	events, cancelEvents := d.registry.Subscribe()
	defer cancelEvents()

	d.startServers(ctx)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.monitor.Run(gCtx)
	})

	g.Go(func() error {
		return d.apiServer.Start(gCtx)
	})

	g.Go(func() error {
		d.logStatusEvents(gCtx, events)
		return nil
	})

	if err := g.Wait(); err != nil && !stdErrors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// startServers launches every configured server concurrently. A server that
// fails to start is logged and left in its error state for the API and the
// monitor to surface; it never prevents the daemon from coming up.
func (d *Daemon) startServers(ctx context.Context) {
	names := d.registry.Names()
	if len(names) == 0 {
		d.logger.Warn("No tool servers configured")
		return
	}

	retry := supervisor.Backoff{
		Base:        supervisor.DefaultRestartBackoffBase,
		MaxAttempts: supervisor.DefaultRestartMaxAttempts,
	}

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()

			startCtx, cancel := context.WithTimeout(ctx, d.startTimeout)
			defer cancel()

			err := retry.Retry(startCtx, func() error {
				return d.registry.Start(startCtx, name)
			})
			if err != nil {
				d.logger.Error("Failed to start tool server", "server", name, "error", err)
				return
			}
			d.logger.Info("Tool server started", "server", name)
		}()
	}
	wg.Wait()
}

// logStatusEvents drains the registry's status event stream until the context
// is canceled or the stream is closed.
func (d *Daemon) logStatusEvents(ctx context.Context, events <-chan domain.StatusEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Status {
			case domain.StatusError:
				d.logger.Error("Tool server status changed", "server", ev.ServerID, "status", ev.Status, "error", ev.Error)
			default:
				d.logger.Info("Tool server status changed", "server", ev.ServerID, "status", ev.Status)
			}
		}
	}
}
