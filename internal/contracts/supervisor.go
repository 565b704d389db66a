// Package contracts defines the interfaces collaborators use to talk to the
// supervision core without depending on its concrete types.
package contracts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/haven-ai/toolhostd/internal/domain"
)

// ServerSupervisor drives tool server lifecycles and routes method calls.
// It is the single point of truth for which servers are usable right now.
type ServerSupervisor interface {
	// Start spawns the named server and runs capability negotiation.
	// Starting a server that already has a live process is a no-op.
	Start(ctx context.Context, name string) error

	// Stop disposes the named server's process; its record is preserved.
	Stop(name string) error

	// Restart stops the named server if running, then starts it again.
	Restart(ctx context.Context, name string) error

	// Remove stops the named server if running and deletes its record.
	Remove(name string) error

	// CallMethod routes one method call to a connected server.
	CallMethod(ctx context.Context, name, method string, args map[string]any) (json.RawMessage, error)

	// RefreshCapabilities re-runs negotiation on a live connection.
	RefreshCapabilities(ctx context.Context, name string) (*domain.CapabilityManifest, error)

	// GetStatus returns the named server's snapshot, including last-known
	// manifest and error even while disconnected.
	GetStatus(name string) (domain.ServerStatus, error)

	// GetAllStatuses returns a snapshot of every managed server.
	GetAllStatuses() []domain.ServerStatus

	// Subscribe registers a status-event channel; the returned function
	// unregisters and closes it.
	Subscribe() (<-chan domain.StatusEvent, func())
}

// HealthMonitor exposes the liveness records the monitoring loop maintains.
type HealthMonitor interface {
	// Status returns the health record for a single tracked server.
	Status(name string) (domain.ServerHealth, error)

	// List returns a copy of all known server health records.
	List() []domain.ServerHealth

	// Update records a probe outcome for a tracked server.
	Update(name string, status domain.HealthStatus, latency *time.Duration) error
}
