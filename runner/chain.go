package runner

import (
	"fmt"

	"github.com/hupe1980/legion/core"
)

// Chain runs agents as a sequential pipeline: the final answer of stage i
// becomes the input text of stage i+1, and the last stage's answer is the
// chain's answer. A non-answered outcome at any stage stops the pipeline and
// propagates unchanged.
//
// Chain implements the Agent contract so pipelines register and route like
// any other agent, including as members of further chains.
type Chain struct {
	name        string
	description string
	stages      []Agent
}

// ChainOptions configures a Chain.
type ChainOptions struct {
	// Description summarizes the pipeline for delegation targets.
	Description string
}

// NewChain builds a pipeline over the given stages in order. At least one
// stage is required.
func NewChain(name string, stages []Agent, optFns ...func(o *ChainOptions)) (*Chain, error) {
	var opts ChainOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if name == "" {
		return nil, fmt.Errorf("chain name must not be empty")
	}

	if len(stages) == 0 {
		return nil, fmt.Errorf("chain %q: at least one stage is required", name)
	}

	return &Chain{name: name, description: opts.Description, stages: stages}, nil
}

// Name returns the chain's routing name.
func (c *Chain) Name() string { return c.name }

// Description returns the chain's description.
func (c *Chain) Description() string { return c.description }

// MaxTurns returns 0: each stage enforces its own turn cap on a fresh
// limiter, the pipeline itself is unbounded.
func (c *Chain) MaxTurns() int { return 0 }

// Info identifies the chain in run contexts and events.
func (c *Chain) Info() core.AgentInfo {
	return core.AgentInfo{Name: c.name, Type: "chain"}
}

// Run executes the stages in order. Each stage receives a fresh conversation
// seeded with the previous stage's answer; the incoming conversation supplies
// the initial input from its last user message.
func (c *Chain) Run(runCtx *core.RunContext, conv *core.Conversation) core.Outcome {
	input := lastUserText(conv)

	turns := 0

	for _, stage := range c.stages {
		select {
		case <-runCtx.Done():
			return core.Aborted("cancelled", turns)
		default:
		}

		stageCtx := runCtx.ForDelegate(stage.Info(), stage.MaxTurns())

		stageConv := core.NewConversation(runCtx.RunID + ":" + stage.Name())
		if err := stageConv.Append(core.NewTextMessage(core.RoleUser, input)); err != nil {
			return core.Failed("conversation", err, turns)
		}

		runCtx.LogDebug("chain.stage.start", "chain", c.name, "stage", stage.Name())

		outcome := stage.Run(stageCtx, stageConv)

		turns += outcome.Turns

		if !outcome.IsAnswered() {
			outcome.Turns = turns
			return outcome
		}

		input = outcome.Text
	}

	// Record the pipeline's answer on the caller's conversation.
	answer := core.NewTextMessage(core.RoleAssistant, input)
	if err := conv.Append(answer); err != nil {
		return core.Failed("conversation", err, turns)
	}

	_ = runCtx.EmitEvent(core.NewMessageEvent(runCtx.RunID, c.name, answer))

	return core.Answered(input, turns)
}

func lastUserText(conv *core.Conversation) string {
	msgs := conv.Snapshot()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == core.RoleUser {
			return msgs[i].Text()
		}
	}

	return ""
}
