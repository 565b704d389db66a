//go:build docsgen_api
// +build docsgen_api

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"

	"github.com/haven-ai/toolhostd/internal/api"
	"github.com/haven-ai/toolhostd/internal/domain"
)

// stubHealthMonitor provides a stub implementation for documentation generation.
type stubHealthMonitor struct{}

func (s *stubHealthMonitor) Status(string) (domain.ServerHealth, error) {
	return domain.ServerHealth{}, nil
}
func (s *stubHealthMonitor) List() []domain.ServerHealth                              { return nil }
func (s *stubHealthMonitor) Update(string, domain.HealthStatus, *time.Duration) error { return nil }

// stubSupervisor provides a stub implementation for documentation generation.
type stubSupervisor struct{}

func (s *stubSupervisor) Start(context.Context, string) error   { return nil }
func (s *stubSupervisor) Stop(string) error                     { return nil }
func (s *stubSupervisor) Restart(context.Context, string) error { return nil }
func (s *stubSupervisor) Remove(string) error                   { return nil }

func (s *stubSupervisor) CallMethod(context.Context, string, string, map[string]any) (json.RawMessage, error) {
	return nil, nil
}

func (s *stubSupervisor) RefreshCapabilities(context.Context, string) (*domain.CapabilityManifest, error) {
	return nil, nil
}

func (s *stubSupervisor) GetStatus(string) (domain.ServerStatus, error) {
	return domain.ServerStatus{}, nil
}

func (s *stubSupervisor) GetAllStatuses() []domain.ServerStatus { return nil }

func (s *stubSupervisor) Subscribe() (<-chan domain.StatusEvent, func()) {
	ch := make(chan domain.StatusEvent)
	return ch, func() { close(ch) }
}

// main generates the OpenAPI specification for the toolhostd API.
// It assumes it is run from the repository root.
func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "toolhostd.docsgen.api",
		Level:  hclog.Info,
		Output: os.Stderr,
	})

	// Output path for the OpenAPI spec, relative to the repository root.
	outputPath := "./docs/api/openapi.yaml"

	// Create a chi router (same as the daemon).
	mux := chi.NewMux()
	mux.Use(middleware.StripSlashes)

	// Create Huma config and router (same as the daemon).
	config := huma.DefaultConfig("toolhostd docs", api.APIVersion)
	router := humachi.New(mux, config)

	// Register routes using stub dependencies.
	// The OpenAPI spec generation only needs the route definitions, not the actual handlers.
	apiPathPrefix, err := api.RegisterRoutes(router, &stubSupervisor{}, &stubHealthMonitor{})
	if err != nil {
		logger.Error("failed to register API routes", "error", err)
		os.Exit(1)
	}

	logger.Info("Routes registered", "prefix", apiPathPrefix)

	// Get the OpenAPI spec as YAML.
	yamlBytes, err := router.OpenAPI().YAML()
	if err != nil {
		logger.Error("failed to generate OpenAPI YAML", "error", err)
		os.Exit(1)
	}

	// Ensure the docs directory exists.
	docsDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		logger.Error("failed to create docs directory", "path", docsDir, "error", err)
		os.Exit(1)
	}

	// Write the YAML to the output file.
	if err := os.WriteFile(outputPath, yamlBytes, 0o644); err != nil {
		logger.Error("failed to write OpenAPI spec", "path", outputPath, "error", err)
		os.Exit(1)
	}

	logger.Info("OpenAPI spec generated", "path", outputPath, "size", fmt.Sprintf("%d bytes", len(yamlBytes)))
}
