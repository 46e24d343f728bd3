// Package model defines the provider-agnostic abstractions for interacting
// with language / reasoning models inside Legion.
//
// Core goals:
//   - Normalize completions behind a single Turn contract: a model turn is
//     either a final textual answer or a batch of tool call requests
//   - Normalize tool declaration (ToolDefinition) and the provider error
//     taxonomy (unavailable, rate limited, rejected) so the agent loop never
//     branches on vendor SDK types
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic, Ollama) implement the Model interface from
// this package so higher layers stay decoupled from vendor SDKs.
package model
