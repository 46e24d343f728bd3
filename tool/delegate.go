package tool

import (
	"fmt"

	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/schema"
)

// delegateTool routes a sub-request to a named agent through the dispatcher
// and returns that agent's final answer as the tool result. A team leader
// gets one delegate tool per member.
type delegateTool struct {
	agentName   string
	description string
	schema      *schema.Schema
}

// NewDelegateTool constructs a tool named "delegate_to_<agent>" that forwards
// a request to the given agent. The description tells the leader model what
// the member is good at; pass the member's own description when in doubt.
func NewDelegateTool(agentName, description string) Tool {
	return &delegateTool{
		agentName:   agentName,
		description: description,
		schema: schema.Object(map[string]*schema.Property{
			"request": schema.String("The task or question to hand to this agent, phrased self-contained"),
		}, "request"),
	}
}

func (t *delegateTool) Name() string { return "delegate_to_" + t.agentName }

func (t *delegateTool) Description() string {
	return fmt.Sprintf("Delegate a task to the %q agent. %s", t.agentName, t.description)
}

func (t *delegateTool) Schema() *schema.Schema { return t.schema }

func (t *delegateTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	request, _ := args["request"].(string)
	if request == "" {
		return nil, NewToolError(t.Name(), "field 'request' must be a non-empty string", CodeValidation)
	}

	outcome, err := tc.Delegate(t.agentName, request)
	if err != nil {
		return nil, err
	}

	if !outcome.IsAnswered() {
		return nil, NewToolError(
			t.Name(),
			fmt.Sprintf("agent %q did not produce an answer: %s", t.agentName, outcome.Reason),
			CodeExecution,
		)
	}

	return map[string]any{"agent": t.agentName, "answer": outcome.Text}, nil
}
