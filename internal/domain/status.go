// Package domain holds the shared types that describe supervised tool servers:
// lifecycle status, capability manifests, status events and health records.
package domain

import "time"

const (
	// StatusDisconnected is the initial and terminal state: no live process exists.
	StatusDisconnected Status = "disconnected"

	// StatusConnecting means a process has been spawned and capability negotiation is running.
	StatusConnecting Status = "connecting"

	// StatusConnected means negotiation finalized and the server is usable for method calls.
	StatusConnected Status = "connected"

	// StatusStopping means an explicit stop is in progress, awaiting clean process exit.
	StatusStopping Status = "stopping"

	// StatusError means the server failed (spawn failure, unexpected exit, write failure,
	// liveness failure). Reachable from any state.
	StatusError Status = "error"
)

// Status represents the lifecycle state of a managed tool server.
// It is driven exclusively by the supervisor's state machine.
type Status string

// StatusEvent is published to registry subscribers on every lifecycle transition,
// in the order transitions occur for a given server.
type StatusEvent struct {
	ServerID string              `json:"serverId"`
	Status   Status              `json:"status"`
	Error    string              `json:"error,omitempty"`
	PID      int                 `json:"pid,omitempty"`
	Manifest *CapabilityManifest `json:"manifest,omitempty"`
}

// ServerStatus is the inspectable snapshot of one managed server, available even
// while disconnected (the manifest may be a cached copy from the last connection).
type ServerStatus struct {
	ID        string              `json:"id"`
	Status    Status              `json:"status"`
	LastError string              `json:"lastError,omitempty"`
	PID       int                 `json:"pid,omitempty"`
	Manifest  *CapabilityManifest `json:"manifest,omitempty"`
	StartedAt *time.Time          `json:"startedAt,omitempty"`
}
