package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/haven-ai/toolhostd/internal/domain"
	"github.com/haven-ai/toolhostd/internal/errors"
	"github.com/haven-ai/toolhostd/internal/supervisor"
)

// stubSupervisor satisfies contracts.ServerSupervisor for wiring tests that
// never exercise the handlers.
type stubSupervisor struct{}

func (*stubSupervisor) Start(_ context.Context, _ string) error   { return nil }
func (*stubSupervisor) Stop(_ string) error                       { return nil }
func (*stubSupervisor) Restart(_ context.Context, _ string) error { return nil }
func (*stubSupervisor) Remove(_ string) error                     { return nil }

func (*stubSupervisor) CallMethod(_ context.Context, _, _ string, _ map[string]any) (json.RawMessage, error) {
	return nil, nil
}

func (*stubSupervisor) RefreshCapabilities(_ context.Context, _ string) (*domain.CapabilityManifest, error) {
	return nil, nil
}

func (*stubSupervisor) GetStatus(_ string) (domain.ServerStatus, error) {
	return domain.ServerStatus{}, nil
}

func (*stubSupervisor) GetAllStatuses() []domain.ServerStatus { return nil }

func (*stubSupervisor) Subscribe() (<-chan domain.StatusEvent, func()) {
	ch := make(chan domain.StatusEvent)
	return ch, func() { close(ch) }
}

func testAPIDependencies(t *testing.T) APIDependencies {
	t.Helper()

	deps, err := NewAPIDependencies(
		hclog.NewNullLogger(),
		&stubSupervisor{},
		supervisor.NewHealthTracker([]string{"test-server"}),
		"localhost:8090",
	)
	require.NoError(t, err)

	return deps
}

func TestNewAPIServer_AppliesDefaults(t *testing.T) {
	t.Parallel()

	deps := testAPIDependencies(t)

	server, err := NewAPIServer(deps)
	require.NoError(t, err)
	require.NotNil(t, server)
	require.Equal(t, DefaultAPIShutdownTimeout(), server.shutdownTimeout)
	require.False(t, server.cors.Enabled)

	server2, err := NewAPIServer(deps, WithShutdownTimeout(10*time.Second), WithCORSEnabled(true))
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, server2.shutdownTimeout)
	require.True(t, server2.cors.Enabled)

	// Nil options are skipped.
	server3, err := NewAPIServer(deps, nil, WithShutdownTimeout(3*time.Second), nil)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, server3.shutdownTimeout)
}

func TestNewAPIServer_RejectsInvalidDependencies(t *testing.T) {
	t.Parallel()

	deps := testAPIDependencies(t)
	deps.Addr = "no-port"

	_, err := NewAPIServer(deps)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid dependencies")
}

func TestAPIServer_ApplyCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		corsConfig CORSConfig
	}{
		{
			name: "basic configuration",
			corsConfig: CORSConfig{
				Enabled:          true,
				AllowOrigins:     []string{"http://localhost:3000", "https://example.com"},
				AllowMethods:     []string{"GET", "POST", "PUT"},
				AllowedHeaders:   []string{"Content-Type", "Authorization"},
				ExposedHeaders:   []string{"X-Total-Count"},
				AllowCredentials: true,
				MaxAge:           5 * time.Minute,
			},
		},
		{
			name: "wildcard origin with credentials forces credentials off",
			corsConfig: CORSConfig{
				Enabled:          true,
				AllowOrigins:     []string{"http://localhost:3000", "*"},
				AllowMethods:     []string{"GET", "POST"},
				AllowCredentials: true,
			},
		},
		{
			name: "origins with whitespace are trimmed",
			corsConfig: CORSConfig{
				Enabled:      true,
				AllowOrigins: []string{"  http://localhost:3000  ", " https://example.com "},
				AllowMethods: []string{"GET"},
			},
		},
		{
			name: "empty origins list",
			corsConfig: CORSConfig{
				Enabled:      true,
				AllowOrigins: []string{},
				AllowMethods: []string{"GET", "POST"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := &APIServer{
				logger: hclog.NewNullLogger(),
				cors:   tc.corsConfig,
			}

			require.NotPanics(t, func() {
				server.applyCORS(chi.NewMux())
			})
		})
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	logger := hclog.NewNullLogger()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "ErrBadRequest maps to 400",
			err:            errors.ErrBadRequest,
			expectedStatus: 400,
		},
		{
			name:           "ErrInvalidArguments maps to 400",
			err:            errors.ErrInvalidArguments,
			expectedStatus: 400,
		},
		{
			name:           "ErrServerNotFound maps to 404",
			err:            errors.ErrServerNotFound,
			expectedStatus: 404,
		},
		{
			name:           "ErrHealthNotTracked maps to 404",
			err:            errors.ErrHealthNotTracked,
			expectedStatus: 404,
		},
		{
			name:           "ErrServerNotConnected maps to 409",
			err:            errors.ErrServerNotConnected,
			expectedStatus: 409,
		},
		{
			name:           "ErrRequestTimeout maps to 504",
			err:            errors.ErrRequestTimeout,
			expectedStatus: 504,
		},
		{
			name:           "ErrSpawn maps to 502",
			err:            errors.ErrSpawn,
			expectedStatus: 502,
		},
		{
			name:           "ErrWrite maps to 502",
			err:            errors.ErrWrite,
			expectedStatus: 502,
		},
		{
			name:           "ErrDisposed maps to 502",
			err:            errors.ErrDisposed,
			expectedStatus: 502,
		},
		{
			name:           "ErrMethodCallFailed maps to 502",
			err:            errors.ErrMethodCallFailed,
			expectedStatus: 502,
		},
		{
			name:           "wrapped sentinel still maps",
			err:            fmt.Errorf("server 'time': %w", errors.ErrServerNotConnected),
			expectedStatus: 409,
		},
		{
			name:           "unknown error maps to 500",
			err:            fmt.Errorf("something unexpected"),
			expectedStatus: 500,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			statusErr := mapError(logger, tc.err)
			require.Equal(t, tc.expectedStatus, statusErr.GetStatus())
		})
	}
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	handler := errorHandler(hclog.NewNullLogger())

	t.Run("no errors uses supplied status", func(t *testing.T) {
		t.Parallel()

		statusErr := handler(nil, 422, "unprocessable")
		require.Equal(t, 422, statusErr.GetStatus())
	})

	t.Run("single error is mapped", func(t *testing.T) {
		t.Parallel()

		statusErr := handler(nil, 500, "ignored", errors.ErrServerNotFound)
		require.Equal(t, 404, statusErr.GetStatus())
	})

	t.Run("joined errors map on first sentinel match", func(t *testing.T) {
		t.Parallel()

		statusErr := handler(nil, 500, "ignored", errors.ErrBadRequest, fmt.Errorf("context"))
		require.Equal(t, 400, statusErr.GetStatus())
	})
}
