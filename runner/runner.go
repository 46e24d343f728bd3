package runner

import (
	"context"
	"sync"

	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/logging"
	"github.com/hupe1980/legion/memory"
)

// Agent is the execution contract the runner dispatches to. *agent.Agent
// satisfies it; Chain does as well, so pipelines register like any other
// agent.
type Agent interface {
	// Name returns the unique routing name.
	Name() string
	// Description summarizes the agent for delegation targets.
	Description() string
	// MaxTurns returns the per-run turn cap (0 = unlimited).
	MaxTurns() int
	// Info identifies the agent in run contexts and events.
	Info() core.AgentInfo
	// Run drives the agent against the conversation until a terminal
	// outcome.
	Run(runCtx *core.RunContext, conv *core.Conversation) core.Outcome
}

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// Store persists conversations across runs keyed by conversation id.
	// Defaults to an in-memory store.
	Store memory.Store
	// EventBufferSize sets channel buffering for the Submit event stream.
	EventBufferSize int
	// Logger receives structured diagnostics. Defaults to no-op.
	Logger logging.Logger
}

// RunOptions configures a single Route or Submit call.
type RunOptions struct {
	// ConversationID keys conversation persistence. When set, prior
	// messages are loaded from the store before the run and the full
	// transcript is saved after it. Empty means an ephemeral conversation.
	ConversationID string
}

// Runner dispatches requests to registered agents and coordinates run
// lifecycle. Public methods are safe for concurrent use.
type Runner struct {
	agents map[string]Agent

	store           memory.Store
	eventBufferSize int
	logger          logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
//
// Example:
//
//	r := runner.New(func(o *runner.Options) {
//		o.Store = sqliteStore
//	})
//	_ = r.Register(researcher)
//	outcome := r.Route(ctx, "researcher", "What is the capital of France?")
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		Store:           memory.NewInMemoryStore(),
		EventBufferSize: 100,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		agents:          make(map[string]Agent),
		store:           opts.Store,
		eventBufferSize: opts.EventBufferSize,
		logger:          opts.Logger,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// Register adds an agent under its name. Names are unique; a second
// registration fails with a *DuplicateAgentError.
func (r *Runner) Register(a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.Name()]; exists {
		return &DuplicateAgentError{Name: a.Name()}
	}

	r.agents[a.Name()] = a

	return nil
}

// Resolve returns the registered agent by name.
func (r *Runner) Resolve(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]

	return a, ok
}

// Names returns the registered agent names in unspecified order.
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}

	return names
}

// Route runs the named agent synchronously and returns its terminal outcome.
// Routing failures (unknown agent, store errors) surface as failed outcomes
// so callers handle exactly one result shape.
func (r *Runner) Route(ctx context.Context, agentName, text string, optFns ...func(o *RunOptions)) core.Outcome {
	var runOpts RunOptions
	for _, fn := range optFns {
		fn(&runOpts)
	}

	a, ok := r.Resolve(agentName)
	if !ok {
		return core.Failed("agent_not_found", &UnknownAgentError{Name: agentName}, 0)
	}

	runID := core.NewID()
	runCtx := core.NewRunContext(ctx, runID, runOpts.ConversationID, a.Info(), a.MaxTurns(), nil, r, r.logger)

	return r.run(runCtx, a, text, runOpts.ConversationID)
}

// Submit starts an asynchronous run of the named agent. It returns the run
// id, a stream of monitoring events, and a channel delivering the single
// terminal outcome. Both channels close when the run finishes; callers must
// drain the event channel or the run stalls once the buffer fills.
func (r *Runner) Submit(
	ctx context.Context,
	agentName, text string,
	optFns ...func(o *RunOptions),
) (string, <-chan core.Event, <-chan core.Outcome, error) {
	var runOpts RunOptions
	for _, fn := range optFns {
		fn(&runOpts)
	}

	a, ok := r.Resolve(agentName)
	if !ok {
		return "", nil, nil, &UnknownAgentError{Name: agentName}
	}

	runID := core.NewID()
	events := make(chan core.Event, r.eventBufferSize)
	outcomes := make(chan core.Outcome, 1)

	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	runCtx := core.NewRunContext(ctx, runID, runOpts.ConversationID, a.Info(), a.MaxTurns(), events, r, r.logger)

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()

			cancel()
			close(events)
			close(outcomes)
		}()

		_ = runCtx.EmitEvent(core.NewEvent(runID, a.Name(), core.EventRunStarted))

		outcome := r.run(runCtx, a, text, runOpts.ConversationID)

		_ = runCtx.EmitEvent(core.NewRunCompletedEvent(runID, a.Name(), outcome))

		outcomes <- outcome
	}()

	return runID, events, outcomes, nil
}

// Cancel aborts a running run by id. Unknown ids, including already finished
// runs, fail with a *UnknownRunError.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return &UnknownRunError{RunID: runID}
	}

	cancel()

	return nil
}

// run executes one agent against a possibly persisted conversation. It owns
// the load / append user text / run / save sequence shared by Route and
// Submit.
func (r *Runner) run(runCtx *core.RunContext, a Agent, text, conversationID string) core.Outcome {
	var prior []core.Message

	if conversationID != "" {
		loaded, err := r.store.Load(conversationID)
		if err != nil {
			return core.Failed("store", err, 0)
		}

		prior = loaded
	}

	convID := conversationID
	if convID == "" {
		convID = runCtx.RunID
	}

	conv := core.NewConversation(convID, prior...)

	userMsg := core.NewTextMessage(core.RoleUser, text)
	if err := conv.Append(userMsg); err != nil {
		return core.Failed("conversation", err, 0)
	}

	_ = runCtx.EmitEvent(core.NewMessageEvent(runCtx.RunID, a.Name(), userMsg))

	r.logger.Debug("runner.run.start", "run_id", runCtx.RunID, "agent", a.Name(), "conversation_id", conversationID)

	outcome := a.Run(runCtx, conv)

	if conversationID != "" {
		if err := r.store.Save(conversationID, conv.Snapshot()); err != nil {
			r.logger.Error("runner.run.save_failed", "run_id", runCtx.RunID, "conversation_id", conversationID, "error", err)
		}
	}

	r.logger.Debug("runner.run.complete", "run_id", runCtx.RunID, "agent", a.Name(), "status", outcome.Status, "turns", outcome.Turns)

	return outcome
}

// Delegate implements core.Delegator. It hands the request to the named
// agent on a derived run context, rejecting unknown targets and delegation
// cycles before the target performs any work. The delegated agent runs
// against a fresh conversation seeded with the request.
func (r *Runner) Delegate(runCtx *core.RunContext, agentName, request string) (core.Outcome, error) {
	target, ok := r.Resolve(agentName)
	if !ok {
		return core.Outcome{}, &UnknownAgentError{Name: agentName}
	}

	if runCtx.OnChain(agentName) {
		return core.Outcome{}, &DelegationCycleError{Agent: agentName, Chain: runCtx.Chain}
	}

	childCtx := runCtx.ForDelegate(target.Info(), target.MaxTurns())

	_ = runCtx.EmitEvent(core.NewEvent(runCtx.RunID, agentName, core.EventDelegation))

	r.logger.Debug("runner.delegate", "run_id", runCtx.RunID, "from", runCtx.Agent.Name, "to", agentName)

	conv := core.NewConversation(runCtx.RunID + ":" + agentName)
	if err := conv.Append(core.NewTextMessage(core.RoleUser, request)); err != nil {
		return core.Outcome{}, err
	}

	return target.Run(childCtx, conv), nil
}
