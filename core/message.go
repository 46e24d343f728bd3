package core

import "github.com/google/uuid"

// Conversation roles. Tool results are recorded under RoleTool so providers
// can map them onto their native tool-result wire formats.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Part represents a polymorphic segment of role-based message content.
// Concrete part types implement the unexported isPart marker enabling a
// closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string // Plain UTF-8 text
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// ToolCall describes a model-requested tool invocation. Arguments carries the
// raw serialized payload (JSON object) exactly as the provider returned it;
// validation happens at the registry boundary.
type ToolCall struct {
	ID        string `json:"id"`                  // Correlation id, unique within a conversation
	Name      string `json:"name"`                // Tool name (case-sensitive exact match)
	Arguments string `json:"arguments,omitempty"` // Serialized argument payload (JSON)
}

// ToolCallPart wraps a ToolCall as a content part.
type ToolCallPart struct {
	ToolCall ToolCall
}

// isPart implements the Part interface for ToolCallPart.
func (ToolCallPart) isPart() {}

// ToolResult describes the outcome of a tool call. A result is paired 1:1
// with its request by ID. Error is populated on failure; IsError reports it.
type ToolResult struct {
	ID       string `json:"id"`                 // Matches the originating ToolCall ID
	Name     string `json:"name"`               // Tool name
	Response any    `json:"response,omitempty"` // Successful result (any JSON-serializable shape)
	Error    string `json:"error,omitempty"`    // Populated on failure
}

// IsError reports whether the tool call failed.
func (r ToolResult) IsError() bool { return r.Error != "" }

// ToolResultPart wraps a ToolResult as a content part.
type ToolResultPart struct {
	ToolResult ToolResult
}

// isPart implements the Part interface for ToolResultPart.
func (ToolResultPart) isPart() {}

// Message holds a role plus ordered parts. Messages are append-only once
// recorded in a Conversation; construct new messages instead of mutating.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NewTextMessage constructs a single-text-part message for the given role.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// NewToolCallMessage constructs an assistant message carrying one or more
// tool call requests, preserving their order.
func NewToolCallMessage(calls ...ToolCall) Message {
	parts := make([]Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, ToolCallPart{ToolCall: c})
	}
	return Message{Role: RoleAssistant, Parts: parts}
}

// NewToolResultMessage constructs a tool-role message recording the outcome
// of a single tool call. If err is non-nil its message is copied into the
// result's Error field.
func NewToolResultMessage(id, name string, response any, err error) Message {
	tr := ToolResult{ID: id, Name: name, Response: response}
	if err != nil {
		tr.Error = err.Error()
	}
	return Message{Role: RoleTool, Parts: []Part{ToolResultPart{ToolResult: tr}}}
}

// NewToolResultsMessage constructs a tool-role message carrying a batch of
// results, preserving their order. The loop records one such message per
// tool call turn, results in request order.
func NewToolResultsMessage(results ...ToolResult) Message {
	parts := make([]Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, ToolResultPart{ToolResult: r})
	}
	return Message{Role: RoleTool, Parts: parts}
}

// Text concatenates all text parts of the message preserving order.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

// ToolCalls returns any tool call parts contained within the message
// preserving their original order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Parts {
		if tc, ok := p.(ToolCallPart); ok {
			calls = append(calls, tc.ToolCall)
		}
	}
	return calls
}

// ToolResults returns any tool result parts contained within the message
// preserving their original order.
func (m Message) ToolResults() []ToolResult {
	var results []ToolResult
	for _, p := range m.Parts {
		if tr, ok := p.(ToolResultPart); ok {
			results = append(results, tr.ToolResult)
		}
	}
	return results
}

// NewID generates a new unique identifier for runs, calls and events.
func NewID() string { return uuid.NewString() }
