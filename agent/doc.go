// Package agent implements the model-driven execution loop at the heart of
// Legion. An Agent pairs a language model with a tool registry, a memory
// policy and per-run limits, and drives the think / act cycle until the model
// produces a final answer or a limit ends the run.
//
// Agents are immutable after construction and safe to share across
// concurrent runs; all per-run state lives in the RunContext and the
// Conversation owned by the caller.
package agent
