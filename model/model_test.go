package model

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hupe1980/legion/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnMessage(t *testing.T) {
	t.Run("final answer", func(t *testing.T) {
		msg := FinalAnswer("42").Message()
		assert.Equal(t, core.RoleAssistant, msg.Role)
		assert.Equal(t, "42", msg.Text())
		assert.Empty(t, msg.ToolCalls())
	})

	t.Run("tool calls", func(t *testing.T) {
		turn := ToolCallsTurn(core.ToolCall{ID: "call-1", Name: "search", Arguments: `{"q":"go"}`})

		msg := turn.Message()
		assert.Equal(t, core.RoleAssistant, msg.Role)

		calls := msg.ToolCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, "search", calls[0].Name)
	})
}

func TestRetryable(t *testing.T) {
	retryable, wait := Retryable(&ProviderUnavailableError{Provider: "openai", Err: errors.New("502")})
	assert.True(t, retryable)
	assert.Zero(t, wait)

	retryable, wait = Retryable(&RateLimitedError{Provider: "openai", RetryAfter: 2 * time.Second})
	assert.True(t, retryable)
	assert.Equal(t, 2*time.Second, wait)

	// Wrapped transient errors stay retryable.
	wrapped := fmt.Errorf("completion failed: %w", &RateLimitedError{Provider: "openai", RetryAfter: time.Second})
	retryable, wait = Retryable(wrapped)
	assert.True(t, retryable)
	assert.Equal(t, time.Second, wait)

	retryable, _ = Retryable(&ProviderRejectedError{Provider: "openai", Reason: "status 400"})
	assert.False(t, retryable)

	retryable, _ = Retryable(errors.New("plain"))
	assert.False(t, retryable)
}

func TestParseRef(t *testing.T) {
	provider, name, err := ParseRef("openai:gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "openai", provider)
	assert.Equal(t, "gpt-4o", name)

	// Model names may contain further colons (ollama tags).
	provider, name, err = ParseRef("ollama:llama3.1:latest")
	require.NoError(t, err)
	assert.Equal(t, "ollama", provider)
	assert.Equal(t, "llama3.1:latest", name)

	_, _, err = ParseRef("gpt-4o")
	assert.Error(t, err)

	_, _, err = ParseRef(":gpt-4o")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	RegisterProvider("fake", func(modelName string) (Model, error) {
		return NewMockModel(modelName, "fake"), nil
	})

	m, err := New("fake:test-model")
	require.NoError(t, err)
	assert.Equal(t, "test-model", m.Info().Name)

	_, err = New("unregistered:model")
	assert.Error(t, err)

	assert.Contains(t, Providers(), "fake")
}

func TestMockModel(t *testing.T) {
	ctx := context.Background()

	t.Run("scripted turns replay in order", func(t *testing.T) {
		m := NewMockModel("mock", "test")
		m.EnqueueTurn(ToolCallsTurn(core.ToolCall{ID: "call-1", Name: "search", Arguments: `{}`}))
		m.EnqueueError(&ProviderUnavailableError{Provider: "test", Err: errors.New("down")})
		m.EnqueueTurn(FinalAnswer("done"))

		turn, err := m.Complete(ctx, Request{})
		require.NoError(t, err)
		assert.Equal(t, TurnToolCalls, turn.Kind)

		_, err = m.Complete(ctx, Request{})
		require.Error(t, err)

		var unavailable *ProviderUnavailableError
		assert.ErrorAs(t, err, &unavailable)

		turn, err = m.Complete(ctx, Request{})
		require.NoError(t, err)
		assert.Equal(t, "done", turn.Text)

		assert.Equal(t, 3, m.CallCount())
	})

	t.Run("canned responses after script", func(t *testing.T) {
		m := NewMockModel("mock", "test")
		m.AddResponse("ping", "pong")

		turn, err := m.Complete(ctx, Request{
			Messages: []core.Message{core.NewTextMessage(core.RoleUser, "ping")},
		})
		require.NoError(t, err)
		assert.Equal(t, TurnFinalAnswer, turn.Kind)
		assert.Equal(t, "pong", turn.Text)
	})

	t.Run("records requests", func(t *testing.T) {
		m := NewMockModel("mock", "test")

		_, err := m.Complete(ctx, Request{Instructions: "be brief"})
		require.NoError(t, err)

		reqs := m.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "be brief", reqs[0].Instructions)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		m := NewMockModel("mock", "test")

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := m.Complete(cancelled, Request{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestToolResultContent(t *testing.T) {
	assert.Equal(t, "plain", ToolResultContent(core.ToolResult{Response: "plain"}))
	assert.Equal(t, "null", ToolResultContent(core.ToolResult{}))
	assert.JSONEq(t, `{"sum":3}`, ToolResultContent(core.ToolResult{Response: map[string]any{"sum": 3}}))
	assert.JSONEq(t, `{"error":"boom"}`, ToolResultContent(core.ToolResult{Error: "boom"}))
}
