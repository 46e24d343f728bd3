package legion

import (
	"context"
	"testing"

	"github.com/hupe1980/legion/agent"
	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/memory"
	"github.com/hupe1980/legion/model"
	"github.com/hupe1980/legion/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute(t *testing.T) {
	mock := model.NewMockModel("test-model", "mock")
	mock.AddResponse("ping", "pong")

	a, err := agent.New("assistant", mock)
	require.NoError(t, err)

	l := New()
	require.NoError(t, l.RegisterAgent(a))

	outcome := l.Route(context.Background(), "assistant", "ping")

	require.Equal(t, core.StatusAnswered, outcome.Status)
	assert.Equal(t, "pong", outcome.Text)
}

func TestSubmitSync(t *testing.T) {
	mock := model.NewMockModel("test-model", "mock")
	mock.AddResponse("ping", "pong")

	a, err := agent.New("assistant", mock)
	require.NoError(t, err)

	l := New()
	require.NoError(t, l.RegisterAgent(a))

	runID, events, outcome, err := l.SubmitSync(context.Background(), "assistant", "ping")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.Equal(t, core.StatusAnswered, outcome.Status)
	assert.Equal(t, "pong", outcome.Text)

	require.NotEmpty(t, events)
	assert.Equal(t, core.EventRunStarted, events[0].Type)
	assert.Equal(t, core.EventRunCompleted, events[len(events)-1].Type)
}

func TestConversationPersistence(t *testing.T) {
	mock := model.NewMockModel("test-model", "mock")
	mock.EnqueueTurn(model.FinalAnswer("Hi Ada"))
	mock.EnqueueTurn(model.FinalAnswer("You said your name is Ada"))

	a, err := agent.New("assistant", mock)
	require.NoError(t, err)

	store := memory.NewInMemoryStore()

	l := New(func(o *Options) {
		o.Store = store
	})
	require.NoError(t, l.RegisterAgent(a))

	outcome := l.Route(context.Background(), "assistant", "I am Ada", func(o *runner.RunOptions) {
		o.ConversationID = "conv-1"
	})
	require.Equal(t, core.StatusAnswered, outcome.Status)

	saved, err := store.Load("conv-1")
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}
