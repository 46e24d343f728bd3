package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/legion/logging"
)

// ToolContext provides a constrained, auditable surface for tool
// implementations invoked by an agent. Tools see the identifiers they need
// for correlation plus the delegation hook, never the loop's conversation.
type ToolContext struct {
	ctx       context.Context
	runCtx    *RunContext
	callID    string
	agentInfo AgentInfo

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to a parent RunContext and
// the unique id of the call being executed.
func NewToolContext(runCtx *RunContext, callID string) *ToolContext {
	return &ToolContext{
		ctx:           runCtx.Context,
		runCtx:        runCtx,
		callID:        callID,
		agentInfo:     runCtx.Agent,
		loggerAdapter: newLoggerAdapter(runCtx.Logger()),
	}
}

// WithContext returns a copy of the tool context bound to ctx. The registry
// uses it to apply the per-call execution timeout.
func (tc *ToolContext) WithContext(ctx context.Context) *ToolContext {
	cp := *tc
	cp.ctx = ctx
	return &cp
}

// Context returns the context associated with the tool invocation. It is
// already bounded by the per-call timeout when one is configured.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// RunID returns the run id associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// CallID returns the id correlating this execution with the model's request.
func (tc *ToolContext) CallID() string { return tc.callID }

// AgentName returns the agent name associated with the tool invocation.
func (tc *ToolContext) AgentName() string { return tc.agentInfo.Name }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// Delegate routes a request to another registered agent and blocks until its
// outcome is available. This is the only sanctioned agent-to-agent recursion;
// the dispatcher rejects cycles before any model or tool call is made on the
// delegated agent.
func (tc *ToolContext) Delegate(agentName, request string) (Outcome, error) {
	if tc.runCtx.Delegator == nil {
		return Outcome{}, fmt.Errorf("no delegator configured for agent %s", tc.agentInfo.Name)
	}

	tc.LogInfo("tool.delegate.request",
		"from_agent", tc.agentInfo.Name,
		"to_agent", agentName,
		"call_id", tc.callID,
	)

	return tc.runCtx.Delegator.Delegate(tc.runCtx, agentName, request)
}
