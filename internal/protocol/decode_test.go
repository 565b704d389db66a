package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode_Kinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		line     string
		wantKind Kind
	}{
		{
			name:     "result response",
			line:     `{"id":"abc","result":{"hits":[]}}`,
			wantKind: KindResponse,
		},
		{
			name:     "error response",
			line:     `{"id":"abc","error":{"code":-1,"message":"bad"}}`,
			wantKind: KindResponse,
		},
		{
			name:     "capability response with nested result",
			line:     `{"type":"capability_response","result":{"models":["x"],"capabilities":[{"name":"search"}]}}`,
			wantKind: KindCapabilityResponse,
		},
		{
			name:     "capability response with top-level fields",
			line:     `{"type":"capability_response","models":["x"],"capabilities":[{"name":"search"}]}`,
			wantKind: KindCapabilityResponse,
		},
		{
			name:     "heartbeat",
			line:     `{"type":"heartbeat","models":["m1","m2"]}`,
			wantKind: KindHeartbeat,
		},
		{
			name:     "unsolicited notification",
			line:     `{"event":"progress","value":42}`,
			wantKind: KindUnknown,
		},
		{
			name:     "id without result or error",
			line:     `{"id":"abc"}`,
			wantKind: KindUnknown,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			msg, err := Decode([]byte(tc.line))
			require.NoError(t, err)
			require.Equal(t, tc.wantKind, msg.Kind)
			require.JSONEq(t, tc.line, string(msg.Raw))
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{name: "not json", line: `this is a log line`},
		{name: "truncated object", line: `{"id":"abc","result":`},
		{name: "empty", line: ``},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode([]byte(tc.line))
			require.Error(t, err)
		})
	}
}

func TestDecode_Response(t *testing.T) {
	t.Parallel()

	t.Run("result preserved", func(t *testing.T) {
		t.Parallel()

		msg, err := Decode([]byte(`{"id":"r1","result":{"hits":[]}}`))
		require.NoError(t, err)
		require.NotNil(t, msg.Response)
		require.Equal(t, "r1", msg.Response.ID)
		require.JSONEq(t, `{"hits":[]}`, string(msg.Response.Result))
		require.Nil(t, msg.Response.Error)
	})

	t.Run("error code message and data preserved", func(t *testing.T) {
		t.Parallel()

		msg, err := Decode([]byte(`{"id":"r2","error":{"code":-1,"message":"bad","data":{"hint":"retry"}}}`))
		require.NoError(t, err)
		require.NotNil(t, msg.Response)
		require.NotNil(t, msg.Response.Error)
		require.Equal(t, -1, msg.Response.Error.Code)
		require.Equal(t, "bad", msg.Response.Error.Message)
		require.JSONEq(t, `{"hint":"retry"}`, string(msg.Response.Error.Data))
	})
}

func TestDecode_CapabilityResponse(t *testing.T) {
	t.Parallel()

	line := `{"type":"capability_response","result":{"models":["x"],"capabilities":[{"name":"search","description":"find things","inputSchema":{"type":"object"}}],"contextTypes":["text","image"]}}`

	msg, err := Decode([]byte(line))
	require.NoError(t, err)
	require.Equal(t, KindCapabilityResponse, msg.Kind)
	require.NotNil(t, msg.CapabilityResponse)
	require.Equal(t, []string{"x"}, msg.CapabilityResponse.Models)
	require.Len(t, msg.CapabilityResponse.Capabilities, 1)
	require.Equal(t, "search", msg.CapabilityResponse.Capabilities[0].Name)
	require.Equal(t, "find things", msg.CapabilityResponse.Capabilities[0].Description)
	require.JSONEq(t, `{"type":"object"}`, string(msg.CapabilityResponse.Capabilities[0].InputSchema))
	require.Equal(t, []string{"text", "image"}, msg.CapabilityResponse.ContextTypes)
}

func TestParseCapabilityResult(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		result, err := ParseCapabilityResult(json.RawMessage(`{"models":["a"],"capabilities":[],"contextTypes":["text"]}`))
		require.NoError(t, err)
		require.Equal(t, []string{"a"}, result.Models)
		require.Equal(t, []string{"text"}, result.ContextTypes)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()

		_, err := ParseCapabilityResult(json.RawMessage(`[1,2,3]`))
		require.Error(t, err)
	})
}

func TestNewCapabilityRequest(t *testing.T) {
	t.Parallel()

	req := NewCapabilityRequest("cap-1", "toolhostd", "0.1.0")
	data, err := json.Marshal(req)
	require.NoError(t, err)
	require.JSONEq(
		t,
		`{"id":"cap-1","method":"mcp.getCapabilities","params":{"client":{"name":"toolhostd","version":"0.1.0"}}}`,
		string(data),
	)
}

func TestRPCError_Error(t *testing.T) {
	t.Parallel()

	err := &RPCError{Code: -32601, Message: "method not found"}
	require.Equal(t, "rpc error -32601: method not found", err.Error())
}
