// Package errors defines domain-level errors used throughout the application.
// These errors represent supervision and protocol failures and are mapped to
// appropriate HTTP status codes at the API boundary.
//
// NOTE: Important for developers
// When adding a new error here, you MUST consider how it should be handled when returned from API endpoints.
//
// Unmapped errors will default to HTTP 500 Internal Server Error.
//
// Don't forget to:
// 1. Add your error to mapError (internal/daemon/api_server.go)
// 2. Add a test case to TestMapError (internal/daemon/api_server_test.go)
// 3. Consider if existing handler tests need updates
package errors

import (
	"errors"
)

var (
	// ErrBadRequest indicates that the client provided invalid input or made a malformed request.
	// This typically results from validation failures or incorrect request parameters.
	// Recommended to map to HTTP 400 Bad Request.
	ErrBadRequest = errors.New("bad request")

	// ErrServerNotFound indicates that the requested tool server does not exist or is not configured.
	// This occurs when trying to access operations on a server that hasn't been registered.
	// Recommended to map to HTTP 404 Not Found.
	ErrServerNotFound = errors.New("server not found")

	// ErrServerNotConnected indicates that the requested tool server exists but is not currently
	// connected, so no method calls can be routed to it.
	// Recommended to map to HTTP 409 Conflict.
	ErrServerNotConnected = errors.New("server not connected")

	// ErrSpawn indicates that the tool server process could not be launched,
	// for example because the executable is missing or pipes were unavailable.
	// Fatal per start attempt; no automatic retry is performed.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrSpawn = errors.New("failed to spawn server process")

	// ErrWrite indicates that a framed request could not be written to the server's stdin,
	// typically because the stream was closed or the transport disposed.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrWrite = errors.New("failed to write to server process")

	// ErrRequestTimeout indicates that a single method call did not receive a matching reply
	// within its deadline. Only the timed-out call is affected; the server stays connected.
	// Recommended to map to HTTP 504 Gateway Timeout.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrDisposed indicates that a pending call was rejected because the transport was
	// disposed before a reply arrived. Every pending call receives this on disposal;
	// none are silently dropped.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrDisposed = errors.New("transport disposed")

	// ErrMethodCallFailed indicates that a method call on a tool server failed with a
	// structured RPC error carried on the wire.
	// Recommended to map to HTTP 502 Bad Gateway.
	ErrMethodCallFailed = errors.New("method call failed")

	// ErrInvalidArguments indicates that tool-call arguments did not satisfy the input schema
	// the server declared for that capability during negotiation.
	// Recommended to map to HTTP 400 Bad Request.
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrHealthNotTracked indicates that health monitoring is not enabled for the specified server.
	// This occurs when trying to get health status for a server that isn't being monitored.
	// Recommended to map to HTTP 404 Not Found.
	ErrHealthNotTracked = errors.New("server health is not being tracked")
)
