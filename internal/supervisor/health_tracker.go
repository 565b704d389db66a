package supervisor

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/haven-ai/toolhostd/internal/domain"
	"github.com/haven-ai/toolhostd/internal/errors"
)

// HealthTracker records the most recent liveness probe outcome per server.
type HealthTracker struct {
	mu       sync.RWMutex
	statuses map[string]domain.ServerHealth
}

// NewHealthTracker seeds a tracker with one unknown record per server name.
func NewHealthTracker(serverNames []string) *HealthTracker {
	statuses := make(map[string]domain.ServerHealth, len(serverNames))
	for _, name := range serverNames {
		statuses[name] = domain.ServerHealth{Name: name, Status: domain.HealthStatusUnknown}
	}
	return &HealthTracker{
		statuses: statuses,
	}
}

// Status returns the health record for a single tracked server.
func (h *HealthTracker) Status(name string) (domain.ServerHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if health, ok := h.statuses[name]; ok {
		return health, nil
	}

	return domain.ServerHealth{}, fmt.Errorf("%w: %s", errors.ErrHealthNotTracked, name)
}

// List returns a copy of all known server health records.
func (h *HealthTracker) List() []domain.ServerHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Collect(maps.Values(h.statuses))
}

// Track begins tracking a server, starting from an unknown status.
// Tracking an already tracked server leaves its record intact.
func (h *HealthTracker) Track(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.statuses[name]; !ok {
		h.statuses[name] = domain.ServerHealth{Name: name, Status: domain.HealthStatusUnknown}
	}
}

// Untrack drops a server's record, typically after removal from the registry.
func (h *HealthTracker) Untrack(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.statuses, name)
}

// Update records a probe outcome for a tracked server.
// The current time is recorded as LastChecked, and LastSuccessful is updated only when status is ok.
// Latency can be nil if the probe failed or was not measured.
func (h *HealthTracker) Update(name string, status domain.HealthStatus, latency *time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now().UTC()

	prev, exists := h.statuses[name]
	if !exists {
		return fmt.Errorf("%w: %s", errors.ErrHealthNotTracked, name)
	}

	var lastSuccessful *time.Time
	if status == domain.HealthStatusOK {
		lastSuccessful = &now
	} else {
		lastSuccessful = prev.LastSuccessful
	}

	h.statuses[name] = domain.ServerHealth{
		Name:           name,
		Status:         status,
		Latency:        latency,
		LastChecked:    &now,
		LastSuccessful: lastSuccessful,
	}

	return nil
}
