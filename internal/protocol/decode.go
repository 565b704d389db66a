package protocol

import (
	"encoding/json"
	"fmt"
)

const (
	// KindResponse is a reply correlated to an outbound request by id.
	KindResponse Kind = "response"

	// KindCapabilityResponse is a type-tagged capability response (no id match required).
	KindCapabilityResponse Kind = "capability_response"

	// KindHeartbeat is an unsolicited liveness message.
	KindHeartbeat Kind = "heartbeat"

	// KindUnknown is any well-formed JSON object this engine does not recognize.
	// The raw line is preserved for forward compatibility.
	KindUnknown Kind = "unknown"
)

// Kind discriminates the message variants a server may emit.
type Kind string

// Message is the tagged union produced by Decode. Exactly one of the variant
// fields matching Kind is populated; Raw always holds the original line.
type Message struct {
	Kind Kind

	Response           *Response
	CapabilityResponse *CapabilityResult
	Heartbeat          *Heartbeat

	Raw json.RawMessage
}

// envelope is the superset of fields used to classify an inbound line.
type envelope struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	Models []string        `json:"models"`

	// Some servers put capability fields at the top level of a
	// capability_response instead of nesting them under result.
	Capabilities []CapabilityEntry `json:"capabilities"`
	ContextTypes []string          `json:"contextTypes"`
}

// Decode classifies one trimmed wire line into a Message.
// It returns an error only when the line is not a JSON object; unrecognized
// but well-formed objects decode to KindUnknown.
func Decode(line []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Message{}, fmt.Errorf("malformed message: %w", err)
	}

	raw := append(json.RawMessage(nil), line...)

	switch {
	case env.Type == TypeHeartbeat:
		return Message{
			Kind:      KindHeartbeat,
			Heartbeat: &Heartbeat{Models: env.Models},
			Raw:       raw,
		}, nil

	case env.Type == TypeCapabilityResponse:
		result, err := decodeCapabilityResult(env)
		if err != nil {
			return Message{}, err
		}
		return Message{
			Kind:               KindCapabilityResponse,
			CapabilityResponse: result,
			Raw:                raw,
		}, nil

	case env.ID != "" && (len(env.Result) > 0 || env.Error != nil):
		return Message{
			Kind: KindResponse,
			Response: &Response{
				ID:     env.ID,
				Result: env.Result,
				Error:  env.Error,
			},
			Raw: raw,
		}, nil

	default:
		return Message{Kind: KindUnknown, Raw: raw}, nil
	}
}

// ParseCapabilityResult parses the result payload of an id-correlated reply to
// a capability request.
func ParseCapabilityResult(result json.RawMessage) (*CapabilityResult, error) {
	var parsed CapabilityResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("malformed capability result: %w", err)
	}
	return &parsed, nil
}

func decodeCapabilityResult(env envelope) (*CapabilityResult, error) {
	if len(env.Result) > 0 {
		return ParseCapabilityResult(env.Result)
	}

	// Top-level capability fields.
	return &CapabilityResult{
		Models:       env.Models,
		Capabilities: env.Capabilities,
		ContextTypes: env.ContextTypes,
	}, nil
}
