package daemon

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/go-hclog"

	"github.com/haven-ai/toolhostd/internal/config"
)

// Dependencies contains required dependencies for the Daemon.
// NewDependencies should be used to create instances of Dependencies.
type Dependencies struct {
	// APIAddr specifies the network address for the APIServer to bind (e.g., "0.0.0.0:8090").
	APIAddr string

	// Logger for daemon and subcomponent (API server) operations.
	Logger hclog.Logger

	// ServerEntries contains the configured tool servers to manage.
	ServerEntries []config.ServerEntry
}

// NewDependencies creates Dependencies with the configured servers.
func NewDependencies(
	logger hclog.Logger,
	apiAddr string,
	entries []config.ServerEntry,
) (Dependencies, error) {
	if entries == nil {
		entries = []config.ServerEntry{}
	}

	deps := Dependencies{
		APIAddr:       apiAddr,
		Logger:        logger,
		ServerEntries: entries,
	}

	if err := deps.Validate(); err != nil {
		return Dependencies{}, err
	}

	return deps, nil
}

// Validate ensures all required dependencies are provided and valid.
func (d Dependencies) Validate() error {
	if d.Logger == nil || reflect.ValueOf(d.Logger).IsNil() {
		return fmt.Errorf("logger cannot be nil")
	}

	if err := validateAddr(d.APIAddr); err != nil {
		return fmt.Errorf("invalid API address '%s': %w", d.APIAddr, err)
	}

	return nil
}
