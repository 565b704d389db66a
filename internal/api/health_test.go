package api

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/haven-ai/toolhostd/internal/domain"
	"github.com/haven-ai/toolhostd/internal/errors"
)

// mockHealthMonitor implements contracts.HealthMonitor for testing.
type mockHealthMonitor struct {
	records map[string]domain.ServerHealth
}

func newMockHealthMonitor() *mockHealthMonitor {
	return &mockHealthMonitor{records: make(map[string]domain.ServerHealth)}
}

func (m *mockHealthMonitor) Status(name string) (domain.ServerHealth, error) {
	if health, ok := m.records[name]; ok {
		return health, nil
	}
	return domain.ServerHealth{}, fmt.Errorf("%w: %s", errors.ErrHealthNotTracked, name)
}

func (m *mockHealthMonitor) List() []domain.ServerHealth {
	out := make([]domain.ServerHealth, 0, len(m.records))
	for _, health := range m.records {
		out = append(out, health)
	}
	return out
}

func (m *mockHealthMonitor) Update(name string, status domain.HealthStatus, latency *time.Duration) error {
	m.records[name] = domain.ServerHealth{Name: name, Status: status, Latency: latency}
	return nil
}

func TestHandleHealthServers_SortedByName(t *testing.T) {
	t.Parallel()

	monitor := newMockHealthMonitor()
	monitor.records["zeta"] = domain.ServerHealth{Name: "zeta", Status: domain.HealthStatusUnknown}
	monitor.records["alpha"] = domain.ServerHealth{Name: "alpha", Status: domain.HealthStatusOK}

	resp, err := handleHealthServers(monitor)
	require.NoError(t, err)
	require.Len(t, resp.Body.Servers, 2)
	require.Equal(t, "alpha", resp.Body.Servers[0].Name)
	require.Equal(t, "zeta", resp.Body.Servers[1].Name)
}

func TestHandleHealthServer_LatencyRendered(t *testing.T) {
	t.Parallel()

	latency := 250 * time.Millisecond
	now := time.Now().UTC()

	monitor := newMockHealthMonitor()
	monitor.records["alpha"] = domain.ServerHealth{
		Name:           "alpha",
		Status:         domain.HealthStatusOK,
		Latency:        &latency,
		LastChecked:    &now,
		LastSuccessful: &now,
	}

	resp, err := handleHealthServer(monitor, "alpha")
	require.NoError(t, err)
	require.Equal(t, HealthStatusOK, resp.Body.Status)
	require.NotNil(t, resp.Body.Latency)
	require.Equal(t, "250ms", *resp.Body.Latency)
	require.NotNil(t, resp.Body.LastChecked)
}

func TestHandleHealthServer_NotTracked(t *testing.T) {
	t.Parallel()

	monitor := newMockHealthMonitor()

	_, err := handleHealthServer(monitor, "ghost")
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrHealthNotTracked)
}

func TestParseHealthStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  domain.HealthStatus
		want    HealthStatus
		wantErr bool
	}{
		{name: "ok", status: domain.HealthStatusOK, want: HealthStatusOK},
		{name: "timeout", status: domain.HealthStatusTimeout, want: HealthStatusTimeout},
		{name: "unreachable", status: domain.HealthStatusUnreachable, want: HealthStatusUnreachable},
		{name: "unknown", status: domain.HealthStatusUnknown, want: HealthStatusUnknown},
		{name: "invalid", status: domain.HealthStatus("weird"), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseHealthStatus(tc.status)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
