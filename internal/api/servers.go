package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/haven-ai/toolhostd/internal/contracts"
)

// ServerRequest identifies one managed server in the URL path.
type ServerRequest struct {
	Name string `doc:"Name of the server" example:"search" path:"name"`
}

// ServerToolCallRequest represents the incoming API request to call a tool on a particular server.
type ServerToolCallRequest struct {
	Server string         `doc:"Name of the server"       example:"search" path:"server"`
	Tool   string         `doc:"Name of the tool to call" example:"query"  path:"tool"`
	Body   map[string]any `doc:"Arguments for the tool call"`
}

// ServersResponse represents the wrapped API response for all managed servers.
type ServersResponse struct {
	Body struct {
		Servers []ServerStatus `doc:"Lifecycle records for all managed servers" json:"servers"`
	}
}

// ServerStatusResponse represents the wrapped API response for one server's lifecycle record.
type ServerStatusResponse struct {
	Body ServerStatus
}

// CapabilityManifestResponse represents the wrapped API response for a capability manifest.
type CapabilityManifestResponse struct {
	Body CapabilityManifest
}

// ServerRemovedResponse acknowledges the deletion of a server record.
type ServerRemovedResponse struct {
	Body struct {
		Name    string `doc:"Name of the removed server" json:"name"`
		Removed bool   `doc:"Whether the record was deleted" json:"removed"`
	}
}

// ToolCallResponse wraps the raw result a tool server returned for a call.
type ToolCallResponse struct {
	Body struct {
		Result any `doc:"Result payload returned by the server" json:"result"`
	}
}

// RegisterServerRoutes sets up the lifecycle and tool-call API endpoint routes.
func RegisterServerRoutes(routerAPI huma.API, supervisor contracts.ServerSupervisor, apiPathPrefix string) {
	serversAPI := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Servers"}

	// Add route at the root of the group (no path specified).
	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "listServers",
			Method:      http.MethodGet,
			Summary:     "List the lifecycle status of all servers",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*ServersResponse, error) {
			return handleServers(supervisor)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "getServer",
			Method:      http.MethodGet,
			Path:        "/{name}",
			Summary:     "Get the lifecycle status of a server",
			Tags:        tags,
		},
		func(ctx context.Context, input *ServerRequest) (*ServerStatusResponse, error) {
			return handleServerStatus(supervisor, input.Name)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "startServer",
			Method:      http.MethodPost,
			Path:        "/{name}/start",
			Summary:     "Start a server",
			Tags:        tags,
		},
		func(ctx context.Context, input *ServerRequest) (*ServerStatusResponse, error) {
			if err := supervisor.Start(ctx, input.Name); err != nil {
				return nil, err
			}
			return handleServerStatus(supervisor, input.Name)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "stopServer",
			Method:      http.MethodPost,
			Path:        "/{name}/stop",
			Summary:     "Stop a server",
			Tags:        tags,
		},
		func(ctx context.Context, input *ServerRequest) (*ServerStatusResponse, error) {
			if err := supervisor.Stop(input.Name); err != nil {
				return nil, err
			}
			return handleServerStatus(supervisor, input.Name)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "restartServer",
			Method:      http.MethodPost,
			Path:        "/{name}/restart",
			Summary:     "Restart a server",
			Tags:        tags,
		},
		func(ctx context.Context, input *ServerRequest) (*ServerStatusResponse, error) {
			if err := supervisor.Restart(ctx, input.Name); err != nil {
				return nil, err
			}
			return handleServerStatus(supervisor, input.Name)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "removeServer",
			Method:      http.MethodDelete,
			Path:        "/{name}",
			Summary:     "Stop a server and delete its record",
			Tags:        tags,
		},
		func(ctx context.Context, input *ServerRequest) (*ServerRemovedResponse, error) {
			return handleServerRemove(supervisor, input.Name)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "refreshServerCapabilities",
			Method:      http.MethodPost,
			Path:        "/{name}/capabilities",
			Summary:     "Re-run capability negotiation on a live connection",
			Tags:        append(tags, "Capabilities"),
		},
		func(ctx context.Context, input *ServerRequest) (*CapabilityManifestResponse, error) {
			return handleRefreshCapabilities(ctx, supervisor, input.Name)
		},
	)

	huma.Register(
		serversAPI,
		huma.Operation{
			OperationID: "callTool",
			Method:      http.MethodPost,
			Path:        "/{server}/tools/{tool}",
			Summary:     "Call a tool on a server",
			Tags:        append(tags, "Tools"),
		},
		func(ctx context.Context, input *ServerToolCallRequest) (*ToolCallResponse, error) {
			return handleServerToolCall(ctx, supervisor, input.Server, input.Tool, input.Body)
		},
	)
}

// handleServers returns the lifecycle records of all managed servers.
func handleServers(supervisor contracts.ServerSupervisor) (*ServersResponse, error) {
	statuses := supervisor.GetAllStatuses()

	apiStatuses := make([]ServerStatus, 0, len(statuses))
	for _, st := range statuses {
		data, err := DomainServerStatus(st).ToAPIType()
		if err != nil {
			return nil, err
		}
		apiStatuses = append(apiStatuses, data)
	}

	resp := &ServersResponse{}
	resp.Body.Servers = apiStatuses

	return resp, nil
}

// handleServerStatus returns the lifecycle record of one managed server.
func handleServerStatus(supervisor contracts.ServerSupervisor, name string) (*ServerStatusResponse, error) {
	status, err := supervisor.GetStatus(name)
	if err != nil {
		return nil, err
	}

	data, err := DomainServerStatus(status).ToAPIType()
	if err != nil {
		return nil, err
	}

	resp := &ServerStatusResponse{}
	resp.Body = data

	return resp, nil
}

// handleServerRemove stops a server if running and deletes its record.
func handleServerRemove(supervisor contracts.ServerSupervisor, name string) (*ServerRemovedResponse, error) {
	if err := supervisor.Remove(name); err != nil {
		return nil, err
	}

	resp := &ServerRemovedResponse{}
	resp.Body.Name = name
	resp.Body.Removed = true

	return resp, nil
}

// handleRefreshCapabilities re-runs negotiation and returns the fresh manifest.
func handleRefreshCapabilities(
	ctx context.Context,
	supervisor contracts.ServerSupervisor,
	name string,
) (*CapabilityManifestResponse, error) {
	manifest, err := supervisor.RefreshCapabilities(ctx, name)
	if err != nil {
		return nil, err
	}

	resp := &CapabilityManifestResponse{}
	resp.Body = DomainCapabilityManifest(*manifest).ToAPIType()

	return resp, nil
}

// handleServerToolCall routes one tool call to a connected server.
func handleServerToolCall(
	ctx context.Context,
	supervisor contracts.ServerSupervisor,
	server string,
	tool string,
	args map[string]any,
) (*ToolCallResponse, error) {
	result, err := supervisor.CallMethod(ctx, server, tool, args)
	if err != nil {
		return nil, err
	}

	resp := &ToolCallResponse{}
	if len(result) > 0 {
		var payload any
		if err := json.Unmarshal(result, &payload); err != nil {
			return nil, err
		}
		resp.Body.Result = payload
	}

	return resp, nil
}
