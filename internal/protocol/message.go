// Package protocol defines the newline-delimited JSON wire format spoken with
// tool server processes: one JSON object per line, UTF-8, terminated by '\n'.
package protocol

import (
	"encoding/json"
	"fmt"
)

const (
	// MethodGetCapabilities is the method name for the capability-discovery handshake.
	MethodGetCapabilities = "mcp.getCapabilities"

	// TypeCapabilityRequest is the legacy type tag some servers recognize for the handshake.
	TypeCapabilityRequest = "capability_request"

	// TypeCapabilityResponse tags an untargeted capability response.
	TypeCapabilityResponse = "capability_response"

	// TypeHeartbeat tags an unsolicited liveness message.
	TypeHeartbeat = "heartbeat"
)

// Request is an outbound framed request: {id, method|type, params}.
type Request struct {
	ID     string `json:"id"`
	Method string `json:"method,omitempty"`
	Type   string `json:"type,omitempty"`
	Params any    `json:"params,omitempty"`
}

// RPCError is the structured error a server may carry on a response.
// Code, message and data are preserved verbatim for the caller.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Response is an inbound reply: {id, result} or {id, error:{code,message,data}}.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// CapabilityResult is the payload of a capability response.
type CapabilityResult struct {
	Models       []string          `json:"models"`
	Capabilities []CapabilityEntry `json:"capabilities"`
	ContextTypes []string          `json:"contextTypes"`
}

// CapabilityEntry describes one tool in a capability response.
type CapabilityEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Heartbeat is an unsolicited liveness message: {type:"heartbeat", models:[...]}.
type Heartbeat struct {
	Models []string `json:"models,omitempty"`
}

// ClientInfo identifies this host in the capability request params.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CapabilityRequestParams is the params object of a capability request.
type CapabilityRequestParams struct {
	Client ClientInfo `json:"client"`
}

// NewCapabilityRequest builds the handshake request sent once per connection attempt.
func NewCapabilityRequest(id, clientName, clientVersion string) Request {
	return Request{
		ID:     id,
		Method: MethodGetCapabilities,
		Params: CapabilityRequestParams{
			Client: ClientInfo{Name: clientName, Version: clientVersion},
		},
	}
}
