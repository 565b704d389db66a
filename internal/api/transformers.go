package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/haven-ai/toolhostd/internal/domain"
)

const (
	ServerStatusDisconnected ServerLifecycleStatus = "disconnected"
	ServerStatusConnecting   ServerLifecycleStatus = "connecting"
	ServerStatusConnected    ServerLifecycleStatus = "connected"
	ServerStatusStopping     ServerLifecycleStatus = "stopping"
	ServerStatusError        ServerLifecycleStatus = "error"
)

// ServerLifecycleStatus is the API rendering of a managed server's lifecycle state.
type ServerLifecycleStatus string

// DomainServerStatus is a wrapper that allows receivers to be declared in the API package that deal with domain types.
type DomainServerStatus domain.ServerStatus

// DomainCapabilityManifest wraps the domain manifest for API conversion.
type DomainCapabilityManifest domain.CapabilityManifest

// ServerStatus is the API view of one managed server's lifecycle record.
type ServerStatus struct {
	Name      string                `json:"name"`
	Status    ServerLifecycleStatus `json:"status"`
	LastError string                `json:"lastError,omitempty"`
	PID       int                   `json:"pid,omitempty"`
	StartedAt *time.Time            `json:"startedAt,omitempty"`
	Manifest  *CapabilityManifest   `json:"manifest,omitempty"`
}

// CapabilityManifest is the API view of a negotiated capability manifest.
type CapabilityManifest struct {
	Models       []string     `json:"models"`
	Capabilities []Capability `json:"capabilities"`
	ContextTypes []string     `json:"contextTypes"`
	DiscoveredAt time.Time    `json:"discoveredAt"`
}

// Capability describes one callable tool a server declared during negotiation.
type Capability struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ToAPIType can be used to convert a wrapped domain type to an API-safe type.
func (d DomainServerStatus) ToAPIType() (ServerStatus, error) {
	status, err := parseLifecycleStatus(d.Status)
	if err != nil {
		return ServerStatus{}, err
	}

	out := ServerStatus{
		Name:      d.ID,
		Status:    status,
		LastError: d.LastError,
		PID:       d.PID,
		StartedAt: d.StartedAt,
	}
	if d.Manifest != nil {
		manifest := DomainCapabilityManifest(*d.Manifest).ToAPIType()
		out.Manifest = &manifest
	}
	return out, nil
}

// ToAPIType converts a wrapped domain manifest to its API shape.
func (d DomainCapabilityManifest) ToAPIType() CapabilityManifest {
	capabilities := make([]Capability, 0, len(d.Capabilities))
	for _, c := range d.Capabilities {
		capabilities = append(capabilities, Capability{
			Name:        c.Name,
			Description: c.Description,
			InputSchema: c.InputSchema,
		})
	}

	return CapabilityManifest{
		Models:       d.Models,
		Capabilities: capabilities,
		ContextTypes: d.ContextTypes,
		DiscoveredAt: d.DiscoveredAt,
	}
}

func parseLifecycleStatus(status domain.Status) (ServerLifecycleStatus, error) {
	switch status {
	case domain.StatusDisconnected:
		return ServerStatusDisconnected, nil
	case domain.StatusConnecting:
		return ServerStatusConnecting, nil
	case domain.StatusConnected:
		return ServerStatusConnected, nil
	case domain.StatusStopping:
		return ServerStatusStopping, nil
	case domain.StatusError:
		return ServerStatusError, nil
	default:
		return "", fmt.Errorf("unknown server status: %s", status)
	}
}
