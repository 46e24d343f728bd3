// Package runner implements the multi-agent dispatcher.
//
// A Runner holds a registry of named agents and routes incoming requests to
// them, either synchronously (Route) or asynchronously with a monitoring
// event stream (Submit). It owns run lifecycle: run ids, cancellation,
// conversation persistence through a memory.Store, and delegation between
// agents with cycle detection.
//
// Beyond single agents the package provides two composition helpers: Chain
// runs agents as a sequential pipeline where each agent's answer feeds the
// next, and Team equips a leader agent with delegation tools for a set of
// member agents.
package runner
