package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/haven-ai/toolhostd/internal/config"
	"github.com/haven-ai/toolhostd/internal/domain"
	"github.com/haven-ai/toolhostd/internal/errors"
)

// Registry is the single point of truth for which tool servers exist and which
// are usable right now. It holds one lifecycle record per configured server and
// republishes every server's status transitions to its subscribers.
type Registry struct {
	logger hclog.Logger
	opts   Options
	events *broadcaster
	health *HealthTracker

	mu       sync.RWMutex
	servers  map[string]*ManagedServer
	disposed bool
}

// NewRegistry builds a registry with one record per configured server entry.
func NewRegistry(logger hclog.Logger, entries []config.ServerEntry, opt ...Option) (*Registry, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		logger:  logger.Named("registry"),
		opts:    opts,
		events:  newBroadcaster(logger),
		servers: make(map[string]*ManagedServer, len(entries)),
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if _, exists := r.servers[entry.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate server name '%s'", errors.ErrBadRequest, entry.Name)
		}
		r.servers[entry.Name] = newManagedServer(logger, entry, opts, r.events.publish)
		names = append(names, entry.Name)
	}
	r.health = NewHealthTracker(names)

	return r, nil
}

// Add registers a new server record without starting it.
func (r *Registry) Add(entry config.ServerEntry) error {
	if entry.Name == "" {
		return fmt.Errorf("%w: server name cannot be empty", errors.ErrBadRequest)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return fmt.Errorf("%w: registry disposed", errors.ErrDisposed)
	}
	if _, exists := r.servers[entry.Name]; exists {
		return fmt.Errorf("%w: server '%s' already exists", errors.ErrBadRequest, entry.Name)
	}

	r.servers[entry.Name] = newManagedServer(r.logger, entry, r.opts, r.events.publish)
	r.health.Track(entry.Name)
	r.logger.Info("server registered", "server", entry.Name)
	return nil
}

// Start spawns the named server and runs capability negotiation. Starting a
// server that is already connecting or connected is a no-op.
func (r *Registry) Start(ctx context.Context, name string) error {
	srv, err := r.startable(name)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}

// Stop disposes the named server's process; the record is preserved.
func (r *Registry) Stop(name string) error {
	srv, err := r.lookup(name)
	if err != nil {
		return err
	}
	return srv.Stop()
}

// Restart stops the named server if running, then starts it again.
func (r *Registry) Restart(ctx context.Context, name string) error {
	srv, err := r.startable(name)
	if err != nil {
		return err
	}
	return srv.Restart(ctx)
}

// Remove stops the named server if running and deletes its record entirely.
func (r *Registry) Remove(name string) error {
	srv, err := r.lookup(name)
	if err != nil {
		return err
	}

	if err := srv.Stop(); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.servers, name)
	r.mu.Unlock()

	r.health.Untrack(name)
	r.logger.Info("server removed", "server", name)
	return nil
}

// CallMethod routes one method call to a connected server. It fails fast when
// the server is unknown or not connected.
func (r *Registry) CallMethod(
	ctx context.Context,
	name string,
	method string,
	args map[string]any,
) (json.RawMessage, error) {
	if method == "" {
		return nil, fmt.Errorf("%w: method name cannot be empty", errors.ErrBadRequest)
	}

	srv, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return srv.Call(ctx, method, args)
}

// RefreshCapabilities re-runs negotiation on the named server's live connection.
func (r *Registry) RefreshCapabilities(ctx context.Context, name string) (*domain.CapabilityManifest, error) {
	srv, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return srv.RefreshCapabilities(ctx)
}

// GetStatus returns the named server's snapshot, including last-known manifest
// and error even while disconnected.
func (r *Registry) GetStatus(name string) (domain.ServerStatus, error) {
	srv, err := r.lookup(name)
	if err != nil {
		return domain.ServerStatus{}, err
	}
	return srv.Status(), nil
}

// GetAllStatuses returns a snapshot of every managed server, ordered by id.
func (r *Registry) GetAllStatuses() []domain.ServerStatus {
	r.mu.RLock()
	servers := make([]*ManagedServer, 0, len(r.servers))
	for _, srv := range r.servers {
		servers = append(servers, srv)
	}
	r.mu.RUnlock()

	statuses := make([]domain.ServerStatus, 0, len(servers))
	for _, srv := range servers {
		statuses = append(statuses, srv.Status())
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}

// Subscribe registers a buffered status-event channel. Events for a given
// server arrive in the order its transitions occur. The returned cancel
// function unregisters and closes the channel.
func (r *Registry) Subscribe() (<-chan domain.StatusEvent, func()) {
	return r.events.subscribe()
}

// Health exposes the per-server liveness records maintained by the monitor.
func (r *Registry) Health() *HealthTracker {
	return r.health
}

// Names returns the ids of all managed servers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.servers))
	for name := range r.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispose stops every managed server concurrently and closes all subscriber
// channels. The registry accepts no new servers afterwards.
func (r *Registry) Dispose() error {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return nil
	}
	r.disposed = true
	servers := make([]*ManagedServer, 0, len(r.servers))
	for _, srv := range r.servers {
		servers = append(servers, srv)
	}
	r.mu.Unlock()

	var g errgroup.Group
	for _, srv := range servers {
		g.Go(srv.Stop)
	}
	err := g.Wait()

	r.events.closeAll()
	r.logger.Info("registry disposed", "servers", len(servers))
	return err
}

// snapshot returns the current server records for iteration.
func (r *Registry) snapshot() []*ManagedServer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	servers := make([]*ManagedServer, 0, len(r.servers))
	for _, srv := range r.servers {
		servers = append(servers, srv)
	}
	return servers
}

// startable resolves the named server for operations that may spawn a process.
// A disposed registry refuses them; nothing would ever stop the new process.
func (r *Registry) startable(name string) (*ManagedServer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.disposed {
		return nil, fmt.Errorf("%w: registry disposed", errors.ErrDisposed)
	}

	srv, ok := r.servers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrServerNotFound, name)
	}
	return srv, nil
}

func (r *Registry) lookup(name string) (*ManagedServer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	srv, ok := r.servers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrServerNotFound, name)
	}
	return srv, nil
}
