package agent

import (
	"errors"

	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/model"
)

// Run drives the think / act loop against the given conversation until the
// model produces a final answer, a limit ends the run, or an unrecoverable
// error occurs. Run always returns a well-typed outcome; it never panics the
// caller and never returns an error directly.
//
// The caller owns the conversation. Run appends every model turn and every
// batch of tool results to it, so after completion the conversation holds the
// full transcript of the run.
func (a *Agent) Run(runCtx *core.RunContext, conv *core.Conversation) core.Outcome {
	for {
		select {
		case <-runCtx.Done():
			return core.Aborted("cancelled", runCtx.Limiter.Count())
		default:
		}

		if err := runCtx.Limiter.Increment(); err != nil {
			runCtx.LogInfo("Turn limit reached", "agent", a.name, "maxTurns", a.maxTurns)
			return core.Aborted("turn_limit", runCtx.Limiter.Count()-1)
		}

		view, err := a.policy.View(runCtx.Context, conv.Snapshot())
		if err != nil {
			return core.Failed("memory_policy", err, runCtx.Limiter.Count())
		}

		instructions, err := a.instruction.Resolve(runCtx)
		if err != nil {
			return core.Failed("instruction", err, runCtx.Limiter.Count())
		}

		turn, err := a.complete(runCtx, model.Request{
			Instructions: instructions,
			Messages:     view,
			Tools:        a.registry.Definitions(),
			Sampling:     a.sampling,
		})
		if err != nil {
			return a.completionOutcome(runCtx, err)
		}

		msg := turn.Message()
		if err := conv.Append(msg); err != nil {
			return core.Failed("conversation", err, runCtx.Limiter.Count())
		}

		_ = runCtx.EmitEvent(core.NewMessageEvent(runCtx.RunID, a.name, msg))

		if turn.Kind == model.TurnFinalAnswer || len(turn.ToolCalls) == 0 {
			runCtx.LogDebug("Run answered", "agent", a.name, "turns", runCtx.Limiter.Count())
			return core.Answered(turn.Text, runCtx.Limiter.Count())
		}

		results := a.registry.InvokeAll(runCtx, turn.ToolCalls)

		resultsMsg := core.NewToolResultsMessage(results...)
		if err := conv.Append(resultsMsg); err != nil {
			return core.Failed("conversation", err, runCtx.Limiter.Count())
		}

		_ = runCtx.EmitEvent(core.NewMessageEvent(runCtx.RunID, a.name, resultsMsg))
	}
}

// completionOutcome classifies a terminal completion error into an outcome.
func (a *Agent) completionOutcome(runCtx *core.RunContext, err error) core.Outcome {
	turns := runCtx.Limiter.Count()

	if ctxErr := runCtx.Context.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return core.Aborted("cancelled", turns)
	}

	var rejected *model.ProviderRejectedError
	if errors.As(err, &rejected) {
		return core.Failed("provider_rejected", err, turns)
	}

	runCtx.LogError("Completion failed", "agent", a.name, "error", err)

	return core.Failed("provider_unavailable", err, turns)
}
