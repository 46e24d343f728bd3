// Package core provides the foundational domain types and execution contexts
// used by Legion. It defines the core abstractions for:
//
//   - Messages (role-based conversation records with typed parts)
//   - Conversations (append-only message logs owned by one execution loop)
//   - Outcomes (the terminal state of a run: answered, failed or aborted)
//   - Events (monitoring records streamed to callers while a run progresses)
//   - RunContext / ToolContext (scoped execution & tool sandboxing)
//
// The package intentionally keeps implementation concerns (providers,
// persistence, the execution loop itself) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
