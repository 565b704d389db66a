package supervisor

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/haven-ai/toolhostd/internal/domain"
)

// Monitor periodically verifies that connected servers are still alive: a
// zero-signal process probe plus heartbeat freshness for servers that send
// heartbeats. A much less frequent sweep restarts servers that are alive but
// have been silent for too long.
type Monitor struct {
	logger   hclog.Logger
	registry *Registry
	opts     Options
}

// NewMonitor creates a monitor over the registry's servers, using the
// registry's supervision options.
func NewMonitor(logger hclog.Logger, registry *Registry) *Monitor {
	return &Monitor{
		logger:   logger.Named("monitor"),
		registry: registry,
		opts:     registry.opts,
	}
}

// Run blocks, probing liveness on every tick and sweeping for silently wedged
// servers on a longer cadence, until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("health monitoring started",
		"liveness_interval", m.opts.LivenessInterval,
		"sweep_interval", m.opts.StaleSweepInterval)

	liveness := time.NewTicker(m.opts.LivenessInterval)
	defer liveness.Stop()

	sweep := time.NewTicker(m.opts.StaleSweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("health monitoring stopped")
			return ctx.Err()
		case <-liveness.C:
			m.probeAll()
		case <-sweep.C:
			m.sweepStale(ctx)
		}
	}
}

// probeAll checks every connected server and records the outcome. A failed
// check demotes the server to disconnected; recovery is left to the operator
// or the stale sweep.
func (m *Monitor) probeAll() {
	now := time.Now().UTC()

	for _, srv := range m.registry.snapshot() {
		name := srv.ID()

		if srv.Status().Status != domain.StatusConnected {
			_ = m.registry.health.Update(name, domain.HealthStatusUnknown, nil)
			continue
		}

		probeStart := time.Now()
		ok, reason := srv.checkLiveness(now)
		latency := time.Since(probeStart)

		if ok {
			_ = m.registry.health.Update(name, domain.HealthStatusOK, &latency)
			continue
		}

		_ = m.registry.health.Update(name, domain.HealthStatusUnreachable, nil)
		srv.markUnhealthy(reason)
	}
}

// sweepStale restarts connected servers that have shown no sign of life past
// the staleness threshold. Restarts retry with exponential backoff and do not
// block the monitoring loop.
func (m *Monitor) sweepStale(ctx context.Context) {
	now := time.Now().UTC()

	for _, srv := range m.registry.snapshot() {
		last := srv.connectedSince()
		if last.IsZero() {
			continue
		}

		silence := now.Sub(last)
		if silence <= m.opts.StaleResponseThreshold {
			continue
		}

		m.logger.Warn("restarting stale server",
			"server", srv.ID(), "silent_for", silence.Round(time.Second))

		go func(srv *ManagedServer) {
			err := m.opts.RestartBackoff.Retry(ctx, func() error {
				return srv.Restart(ctx)
			})
			if err != nil {
				m.logger.Error("failed to restart stale server", "server", srv.ID(), "error", err)
			}
		}(srv)
	}
}
