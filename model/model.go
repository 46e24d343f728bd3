package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/legion/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Sampling tunes generation behavior. The zero value means provider defaults.
type Sampling struct {
	// Temperature in [0, 1]; nil leaves the provider default in place.
	Temperature *float64 `json:"temperature,omitempty"`
	// MaxTokens caps the completion length; 0 leaves the provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// Request captures the normalized model input produced by the agent loop.
type Request struct {
	Instructions string           `json:"instructions"` // System prompt for the model
	Messages     []core.Message   `json:"messages"`     // Conversation history, oldest first
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Sampling     Sampling         `json:"sampling,omitzero"`
}

// TokenUsage captures token usage statistics for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TurnKind discriminates the two shapes a completed model turn can take.
type TurnKind string

const (
	// TurnFinalAnswer is a textual answer that ends the loop.
	TurnFinalAnswer TurnKind = "final_answer"
	// TurnToolCalls is a batch of tool call requests to execute.
	TurnToolCalls TurnKind = "tool_calls"
)

// Turn is the normalized result of one completion. Exactly one variant is
// populated, selected by Kind. Adapters that receive mixed content from a
// provider (text plus tool calls in one response) classify the turn as
// TurnToolCalls and keep the text in Text for the transcript.
type Turn struct {
	Kind      TurnKind        `json:"kind"`
	Text      string          `json:"text,omitempty"`
	ToolCalls []core.ToolCall `json:"tool_calls,omitempty"`
	Usage     *TokenUsage     `json:"usage,omitempty"`
}

// FinalAnswer constructs a terminal turn carrying the model's answer.
func FinalAnswer(text string) *Turn {
	return &Turn{Kind: TurnFinalAnswer, Text: text}
}

// ToolCallsTurn constructs a turn requesting execution of the given calls.
func ToolCallsTurn(calls ...core.ToolCall) *Turn {
	return &Turn{Kind: TurnToolCalls, ToolCalls: calls}
}

// Message converts the turn into the assistant message recorded in the
// conversation before any tool results are appended.
func (t *Turn) Message() core.Message {
	if t.Kind == TurnToolCalls {
		return core.NewToolCallMessage(t.ToolCalls...)
	}

	return core.NewTextMessage(core.RoleAssistant, t.Text)
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "ollama", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
type Model interface {
	// Complete sends the request and blocks until the model produces a full
	// turn. Transient transport failures surface as *ProviderUnavailableError
	// or *RateLimitedError so callers can retry; anything the provider will
	// never accept surfaces as *ProviderRejectedError.
	Complete(ctx context.Context, req Request) (*Turn, error)

	// Info returns information about the model implementation.
	Info() Info
}

// ProviderUnavailableError indicates the provider could not be reached or
// answered with a server-side failure. Retryable.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// RateLimitedError indicates the provider throttled the request. Retryable;
// RetryAfter carries the provider's wait hint when one was given (0 = none).
type RateLimitedError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
	}

	return fmt.Sprintf("provider %s rate limited: %v", e.Provider, e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// ProviderRejectedError indicates the provider refused the request itself
// (malformed payload, unknown model, content policy). Not retryable; the
// identical request would fail again.
type ProviderRejectedError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProviderRejectedError) Error() string {
	return fmt.Sprintf("provider %s rejected request: %s", e.Provider, e.Reason)
}

func (e *ProviderRejectedError) Unwrap() error { return e.Err }

// Retryable reports whether err is a transient provider failure worth
// retrying, and the wait hint to honor before the next attempt (0 = caller
// chooses its own backoff). Wrapped errors are unwrapped along the way.
func Retryable(err error) (bool, time.Duration) {
	var rateLimited *RateLimitedError
	if errors.As(err, &rateLimited) {
		return true, rateLimited.RetryAfter
	}

	var unavailable *ProviderUnavailableError
	if errors.As(err, &unavailable) {
		return true, 0
	}

	return false, 0
}
