package daemon

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/go-hclog"

	"github.com/haven-ai/toolhostd/internal/contracts"
)

// APIDependencies contains the required external dependencies for the API server.
// NewAPIDependencies should be used to create instances of APIDependencies.
type APIDependencies struct {
	// Addr specifies the network address to bind (e.g., "0.0.0.0:8090").
	Addr string

	// Supervisor drives tool server lifecycles and routes method calls.
	Supervisor contracts.ServerSupervisor

	// HealthMonitor exposes per-server liveness records.
	HealthMonitor contracts.HealthMonitor

	// Logger for API server operations.
	Logger hclog.Logger
}

// NewAPIDependencies creates and validates APIDependencies.
func NewAPIDependencies(
	logger hclog.Logger,
	supervisor contracts.ServerSupervisor,
	healthMonitor contracts.HealthMonitor,
	addr string,
) (APIDependencies, error) {
	deps := APIDependencies{
		Addr:          addr,
		Supervisor:    supervisor,
		HealthMonitor: healthMonitor,
		Logger:        logger,
	}

	if err := deps.Validate(); err != nil {
		return APIDependencies{}, err
	}

	return deps, nil
}

// Validate ensures all required dependencies are provided and valid.
func (d APIDependencies) Validate() error {
	if err := validateAddr(d.Addr); err != nil {
		return fmt.Errorf("invalid API address '%s': %w", d.Addr, err)
	}
	if d.Supervisor == nil || reflect.ValueOf(d.Supervisor).IsNil() {
		return fmt.Errorf("supervisor cannot be nil")
	}
	if d.HealthMonitor == nil || reflect.ValueOf(d.HealthMonitor).IsNil() {
		return fmt.Errorf("health monitor cannot be nil")
	}
	if d.Logger == nil || reflect.ValueOf(d.Logger).IsNil() {
		return fmt.Errorf("logger cannot be nil")
	}
	return nil
}
