package core

import (
	"encoding/json"
	"fmt"
)

// partEnvelope is the wire shape for the polymorphic Part set. The type tag
// selects which payload field is populated.
type partEnvelope struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

const (
	partTypeText       = "text"
	partTypeToolCall   = "tool_call"
	partTypeToolResult = "tool_result"
)

type messageEnvelope struct {
	Role  string         `json:"role"`
	Parts []partEnvelope `json:"parts"`
}

// MarshalJSON encodes the message with type-tagged parts so the closed Part
// set survives a round trip through storage.
func (m Message) MarshalJSON() ([]byte, error) {
	env := messageEnvelope{Role: m.Role, Parts: make([]partEnvelope, 0, len(m.Parts))}

	for _, p := range m.Parts {
		switch part := p.(type) {
		case TextPart:
			env.Parts = append(env.Parts, partEnvelope{Type: partTypeText, Text: part.Text})
		case ToolCallPart:
			call := part.ToolCall
			env.Parts = append(env.Parts, partEnvelope{Type: partTypeToolCall, ToolCall: &call})
		case ToolResultPart:
			result := part.ToolResult
			env.Parts = append(env.Parts, partEnvelope{Type: partTypeToolResult, ToolResult: &result})
		default:
			return nil, fmt.Errorf("unknown part type %T", p)
		}
	}

	return json.Marshal(env)
}

// UnmarshalJSON decodes a type-tagged message envelope.
func (m *Message) UnmarshalJSON(data []byte) error {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	parts := make([]Part, 0, len(env.Parts))

	for _, p := range env.Parts {
		switch p.Type {
		case partTypeText:
			parts = append(parts, TextPart{Text: p.Text})
		case partTypeToolCall:
			if p.ToolCall == nil {
				return fmt.Errorf("tool_call part missing payload")
			}
			parts = append(parts, ToolCallPart{ToolCall: *p.ToolCall})
		case partTypeToolResult:
			if p.ToolResult == nil {
				return fmt.Errorf("tool_result part missing payload")
			}
			parts = append(parts, ToolResultPart{ToolResult: *p.ToolResult})
		default:
			return fmt.Errorf("unknown part type %q", p.Type)
		}
	}

	m.Role = env.Role
	m.Parts = parts

	return nil
}
