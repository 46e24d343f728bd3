package core

import (
	"context"
	"slices"

	"github.com/hupe1980/legion/logging"
)

// AgentInfo carries identifying details about an agent used in contexts and
// events. Name is the external identifier; Type categorizes implementation
// (e.g. "model", "chain").
type AgentInfo struct{ Name, Type string }

// Delegator routes a request to a named agent on behalf of a running loop.
// The dispatcher implements it; the delegate tool reaches it through the
// ToolContext. Implementations must reject delegation cycles.
type Delegator interface {
	Delegate(runCtx *RunContext, agentName, request string) (Outcome, error)
}

// RunContext carries execution state and helpers for one agent run. It
// aggregates:
//   - The ambient cancellation Context
//   - Identifiers (RunID, ConversationID, Agent info)
//   - The monitoring event channel (optional)
//   - The active delegation chain for cycle detection
//   - The per-run turn limiter
//
// A RunContext is created by the dispatcher per run; delegated runs derive a
// child context with the chain extended.
type RunContext struct {
	Context        context.Context
	RunID          string
	ConversationID string
	Agent          AgentInfo
	Emit           chan<- Event
	Chain          []string // agent names active in this call chain, outermost first
	Limiter        *TurnLimiter
	Delegator      Delegator

	*loggerAdapter
}

// NewRunContext constructs a RunContext rooted at the given agent. maxTurns
// seeds the turn limiter (0 = unlimited). emit may be nil when the caller does
// not consume monitoring events.
func NewRunContext(
	ctx context.Context,
	runID, conversationID string,
	agent AgentInfo,
	maxTurns int,
	emit chan<- Event,
	delegator Delegator,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:        ctx,
		RunID:          runID,
		ConversationID: conversationID,
		Agent:          agent,
		Emit:           emit,
		Chain:          []string{agent.Name},
		Limiter:        NewTurnLimiter(maxTurns),
		Delegator:      delegator,
		loggerAdapter:  newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// OnChain reports whether the named agent is already active in this call
// chain. Used by the dispatcher to detect delegation cycles.
func (rc *RunContext) OnChain(agentName string) bool {
	return slices.Contains(rc.Chain, agentName)
}

// ForDelegate derives a child context for a delegated run. The delegated
// agent is appended to the chain and receives a fresh turn limiter sized by
// maxTurns. RunID and event channel are shared so callers observe the whole
// tree under one run.
func (rc *RunContext) ForDelegate(agent AgentInfo, maxTurns int) *RunContext {
	chain := make([]string, 0, len(rc.Chain)+1)
	chain = append(chain, rc.Chain...)
	chain = append(chain, agent.Name)

	return &RunContext{
		Context:        rc.Context,
		RunID:          rc.RunID,
		ConversationID: "", // delegated runs use ephemeral conversations
		Agent:          agent,
		Emit:           rc.Emit,
		Chain:          chain,
		Limiter:        NewTurnLimiter(maxTurns),
		Delegator:      rc.Delegator,
		loggerAdapter:  rc.loggerAdapter,
	}
}

// EmitEvent delivers a monitoring event unless the context is cancelled.
// A nil Emit channel silently drops events.
func (rc *RunContext) EmitEvent(ev Event) error {
	if rc.Emit == nil {
		return nil
	}

	select {
	case <-rc.Context.Done():
		return rc.Context.Err()
	case rc.Emit <- ev:
		return nil
	}
}
