package domain

import (
	"encoding/json"
	"time"
)

// DefaultContextType is the context type assumed when a server never
// negotiated capabilities.
const DefaultContextType = "text"

// Capability describes one tool a server can execute.
type Capability struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// CapabilityManifest is the negotiated description of what a managed server can do.
// It is present on the live record only while the server is connected; a cached
// copy remains inspectable after disconnection.
type CapabilityManifest struct {
	Models       []string     `json:"models"`
	Capabilities []Capability `json:"capabilities"`
	ContextTypes []string     `json:"contextTypes"`
	DiscoveredAt time.Time    `json:"discoveredAt"`
}

// EmptyManifest returns the degraded manifest used when negotiation times out
// or the server never answers: the server is still usable for direct calls.
func EmptyManifest(now time.Time) *CapabilityManifest {
	return &CapabilityManifest{
		Models:       []string{},
		Capabilities: []Capability{},
		ContextTypes: []string{DefaultContextType},
		DiscoveredAt: now,
	}
}

// Capability returns the named capability and whether it was negotiated.
func (m *CapabilityManifest) Capability(name string) (Capability, bool) {
	if m == nil {
		return Capability{}, false
	}
	for _, c := range m.Capabilities {
		if c.Name == name {
			return c, true
		}
	}
	return Capability{}, false
}

// Clone returns a deep copy so callers cannot mutate the live record.
func (m *CapabilityManifest) Clone() *CapabilityManifest {
	if m == nil {
		return nil
	}
	out := &CapabilityManifest{
		Models:       append([]string(nil), m.Models...),
		Capabilities: make([]Capability, len(m.Capabilities)),
		ContextTypes: append([]string(nil), m.ContextTypes...),
		DiscoveredAt: m.DiscoveredAt,
	}
	for i, c := range m.Capabilities {
		out.Capabilities[i] = Capability{
			Name:        c.Name,
			Description: c.Description,
			InputSchema: append(json.RawMessage(nil), c.InputSchema...),
		}
	}
	return out
}
