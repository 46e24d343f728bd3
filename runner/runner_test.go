package runner

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/legion/agent"
	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/memory"
	"github.com/hupe1980/legion/model"
	"github.com/hupe1980/legion/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newAgent(t *testing.T, name string, m model.Model, optFns ...func(o *agent.Options)) *agent.Agent {
	t.Helper()

	a, err := agent.New(name, m, optFns...)
	require.NoError(t, err)

	return a
}

// blockingModel parks every completion until the run context is cancelled.
type blockingModel struct {
	once    sync.Once
	started chan struct{}
}

func newBlockingModel() *blockingModel {
	return &blockingModel{started: make(chan struct{})}
}

func (b *blockingModel) Complete(ctx context.Context, _ model.Request) (*model.Turn, error) {
	b.once.Do(func() { close(b.started) })

	<-ctx.Done()

	return nil, ctx.Err()
}

func (b *blockingModel) Info() model.Info {
	return model.Info{Name: "blocking", Provider: "test"}
}

func TestRegister(t *testing.T) {
	r := New()
	m := model.NewMockModel("test-model", "mock")

	require.NoError(t, r.Register(newAgent(t, "alpha", m)))

	t.Run("duplicate", func(t *testing.T) {
		err := r.Register(newAgent(t, "alpha", m))

		var dupErr *DuplicateAgentError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, "alpha", dupErr.Name)
	})

	t.Run("resolve", func(t *testing.T) {
		a, ok := r.Resolve("alpha")
		require.True(t, ok)
		assert.Equal(t, "alpha", a.Name())

		_, ok = r.Resolve("missing")
		assert.False(t, ok)
	})

	t.Run("names", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"alpha"}, r.Names())
	})
}

func TestRoute(t *testing.T) {
	t.Run("answered", func(t *testing.T) {
		m := model.NewMockModel("test-model", "mock")
		m.AddResponse("ping", "pong")

		r := New()
		require.NoError(t, r.Register(newAgent(t, "echoer", m)))

		outcome := r.Route(context.Background(), "echoer", "ping")

		require.Equal(t, core.StatusAnswered, outcome.Status)
		assert.Equal(t, "pong", outcome.Text)
	})

	t.Run("unknown agent", func(t *testing.T) {
		r := New()

		outcome := r.Route(context.Background(), "ghost", "hello")

		require.Equal(t, core.StatusFailed, outcome.Status)
		assert.Equal(t, "agent_not_found", outcome.Reason)

		var unknownErr *UnknownAgentError
		assert.ErrorAs(t, outcome.Err, &unknownErr)
	})
}

func TestRoutePersistsConversation(t *testing.T) {
	m := model.NewMockModel("test-model", "mock")
	m.EnqueueTurn(model.FinalAnswer("Nice to meet you, Ada"))
	m.EnqueueTurn(model.FinalAnswer("Your name is Ada"))

	store := memory.NewInMemoryStore()
	r := New(func(o *Options) { o.Store = store })
	require.NoError(t, r.Register(newAgent(t, "assistant", m)))

	withConv := func(o *RunOptions) { o.ConversationID = "conv-1" }

	first := r.Route(context.Background(), "assistant", "My name is Ada", withConv)
	require.Equal(t, core.StatusAnswered, first.Status)

	second := r.Route(context.Background(), "assistant", "What is my name?", withConv)
	require.Equal(t, core.StatusAnswered, second.Status)
	assert.Equal(t, "Your name is Ada", second.Text)

	// The second completion saw the persisted history plus the new question.
	reqs := m.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[1].Messages, 3)
	assert.Equal(t, "My name is Ada", reqs[1].Messages[0].Text())

	// Store holds the full transcript after both runs.
	saved, err := store.Load("conv-1")
	require.NoError(t, err)
	assert.Len(t, saved, 4)
}

func TestSubmit(t *testing.T) {
	m := model.NewMockModel("test-model", "mock")
	m.AddResponse("ping", "pong")

	r := New()
	require.NoError(t, r.Register(newAgent(t, "echoer", m)))

	runID, events, outcomes, err := r.Submit(context.Background(), "echoer", "ping")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	outcome := <-outcomes
	require.Equal(t, core.StatusAnswered, outcome.Status)
	assert.Equal(t, "pong", outcome.Text)

	var types []core.EventType
	for ev := range events {
		assert.Equal(t, runID, ev.RunID)
		types = append(types, ev.Type)
	}

	require.NotEmpty(t, types)
	assert.Equal(t, core.EventRunStarted, types[0])
	assert.Equal(t, core.EventRunCompleted, types[len(types)-1])

	// Outcome channel closes after delivering the single result.
	_, open := <-outcomes
	assert.False(t, open)

	t.Run("unknown agent", func(t *testing.T) {
		_, _, _, err := r.Submit(context.Background(), "ghost", "hello")

		var unknownErr *UnknownAgentError
		require.ErrorAs(t, err, &unknownErr)
	})
}

func TestCancel(t *testing.T) {
	b := newBlockingModel()

	r := New()
	require.NoError(t, r.Register(newAgent(t, "sleeper", b)))

	runID, events, outcomes, err := r.Submit(context.Background(), "sleeper", "wait")
	require.NoError(t, err)

	// Wait until the run is actually inside the model call.
	select {
	case <-b.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run never reached the model")
	}

	require.NoError(t, r.Cancel(runID))

	outcome := <-outcomes
	require.Equal(t, core.StatusAborted, outcome.Status)
	assert.Equal(t, "cancelled", outcome.Reason)

	for range events {
	}

	t.Run("unknown run", func(t *testing.T) {
		err := r.Cancel("missing")

		var unknownErr *UnknownRunError
		require.ErrorAs(t, err, &unknownErr)
	})

	t.Run("finished run", func(t *testing.T) {
		err := r.Cancel(runID)

		var unknownErr *UnknownRunError
		require.ErrorAs(t, err, &unknownErr)
	})
}

func TestTeamDelegation(t *testing.T) {
	leaderModel := model.NewMockModel("leader-model", "mock")
	leaderModel.EnqueueTurn(model.ToolCallsTurn(core.ToolCall{
		ID:        "call-1",
		Name:      "delegate_to_researcher",
		Arguments: `{"request": "Find the boiling point of water"}`,
	}))
	leaderModel.EnqueueTurn(model.FinalAnswer("Water boils at 100C"))

	memberModel := model.NewMockModel("member-model", "mock")
	memberModel.EnqueueTurn(model.FinalAnswer("100C at sea level"))

	r := New()

	member := newAgent(t, "researcher", memberModel, func(o *agent.Options) {
		o.Description = "Looks up facts."
	})
	leader := newAgent(t, "editor", leaderModel, func(o *agent.Options) {
		o.ToolTimeout = 0 // delegated runs are not bounded by a tool timeout
	})

	require.NoError(t, r.Team(leader, member))

	outcome := r.Route(context.Background(), "editor", "How hot does water boil?")

	require.Equal(t, core.StatusAnswered, outcome.Status)
	assert.Equal(t, "Water boils at 100C", outcome.Text)

	// The member ran exactly once with the delegated request.
	memberReqs := memberModel.Requests()
	require.Len(t, memberReqs, 1)
	assert.Equal(t, "Find the boiling point of water", memberReqs[0].Messages[0].Text())

	// The leader saw the member's answer as a tool result.
	leaderReqs := leaderModel.Requests()
	require.Len(t, leaderReqs, 2)
	last := leaderReqs[1].Messages[len(leaderReqs[1].Messages)-1]
	require.Equal(t, core.RoleTool, last.Role)
	require.Len(t, last.ToolResults(), 1)
	assert.False(t, last.ToolResults()[0].IsError())
}

func TestDelegationCycleRejected(t *testing.T) {
	// alpha delegates to beta; beta tries to delegate back to alpha, which
	// must fail before alpha runs again. beta then answers on its own.
	alphaModel := model.NewMockModel("alpha-model", "mock")
	alphaModel.EnqueueTurn(model.ToolCallsTurn(core.ToolCall{
		ID:        "call-a1",
		Name:      "delegate_to_beta",
		Arguments: `{"request": "Ask alpha for help"}`,
	}))
	alphaModel.EnqueueTurn(model.FinalAnswer("done"))

	betaModel := model.NewMockModel("beta-model", "mock")
	betaModel.EnqueueTurn(model.ToolCallsTurn(core.ToolCall{
		ID:        "call-b1",
		Name:      "delegate_to_alpha",
		Arguments: `{"request": "Help me"}`,
	}))
	betaModel.EnqueueTurn(model.FinalAnswer("Handled it myself"))

	alpha := newAgent(t, "alpha", alphaModel, func(o *agent.Options) {
		o.Tools = []tool.Tool{tool.NewDelegateTool("beta", "The beta agent.")}
		o.ToolTimeout = 0
	})
	beta := newAgent(t, "beta", betaModel, func(o *agent.Options) {
		o.Tools = []tool.Tool{tool.NewDelegateTool("alpha", "The alpha agent.")}
		o.ToolTimeout = 0
	})

	r := New()
	require.NoError(t, r.Register(alpha))
	require.NoError(t, r.Register(beta))

	outcome := r.Route(context.Background(), "alpha", "start")

	require.Equal(t, core.StatusAnswered, outcome.Status)
	assert.Equal(t, "done", outcome.Text)

	// alpha never ran a second nested time.
	assert.Equal(t, 2, alphaModel.CallCount())

	// beta saw the cycle rejection as an error result it could react to.
	betaReqs := betaModel.Requests()
	require.Len(t, betaReqs, 2)
	last := betaReqs[1].Messages[len(betaReqs[1].Messages)-1]
	results := last.ToolResults()
	require.Len(t, results, 1)
	require.True(t, results[0].IsError())
	assert.True(t, strings.Contains(results[0].Error, "delegation cycle"), results[0].Error)
}

func TestDelegateUnknownAgent(t *testing.T) {
	m := model.NewMockModel("test-model", "mock")
	m.EnqueueTurn(model.ToolCallsTurn(core.ToolCall{
		ID:        "call-1",
		Name:      "delegate_to_ghost",
		Arguments: `{"request": "anything"}`,
	}))
	m.EnqueueTurn(model.FinalAnswer("Nobody home"))

	a := newAgent(t, "alpha", m, func(o *agent.Options) {
		o.Tools = []tool.Tool{tool.NewDelegateTool("ghost", "Does not exist.")}
	})

	r := New()
	require.NoError(t, r.Register(a))

	outcome := r.Route(context.Background(), "alpha", "start")

	require.Equal(t, core.StatusAnswered, outcome.Status)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	results := reqs[1].Messages[len(reqs[1].Messages)-1].ToolResults()
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "not registered")
}
