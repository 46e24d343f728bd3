package agent

import (
	"fmt"
	"time"

	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/memory"
	"github.com/hupe1980/legion/model"
	"github.com/hupe1980/legion/tool"
)

// ConfigError reports an invalid agent configuration detected at
// construction time.
type ConfigError struct {
	Agent  string // Agent name
	Field  string // Offending option
	Reason string // Human-readable cause
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("agent %q: invalid %s: %s", e.Agent, e.Field, e.Reason)
}

// Options configures an Agent. All fields are optional; zero values fall
// back to the defaults documented per field.
type Options struct {
	// Description summarizes what the agent is for. Surfaced to leader
	// agents when this agent is a delegation target.
	Description string

	// Instruction is the system prompt, static or dynamically provided.
	Instruction Instruction

	// Tools the model may call during the run.
	Tools []tool.Tool

	// MemoryPolicy shapes the per-request view of the conversation.
	// Defaults to the full history.
	MemoryPolicy memory.Policy

	// MaxTurns caps thinking turns per run. 0 means unlimited.
	// Defaults to 10.
	MaxTurns int

	// ToolTimeout bounds a single tool execution. Defaults to 15s.
	ToolTimeout time.Duration

	// MaxParallelTools bounds concurrent tool executions within one turn.
	// 0 means no bound.
	MaxParallelTools int

	// Retry governs completion retries on transient provider errors.
	Retry RetryConfig

	// Temperature in [0, 1]; nil leaves the provider default.
	Temperature *float64

	// MaxTokens caps completion length; 0 leaves the provider default.
	MaxTokens int
}

// Agent drives the think / act loop for a single model. Immutable after
// construction and safe for concurrent runs.
//
// Example:
//
//	a, err := agent.New("researcher", m, func(o *agent.Options) {
//		o.Instruction = agent.NewInstructionFromText("You research topics.")
//		o.Tools = []tool.Tool{searchTool}
//		o.MaxTurns = 5
//	})
type Agent struct {
	name        string
	description string
	model       model.Model
	instruction Instruction
	registry    *tool.Registry
	policy      memory.Policy
	maxTurns    int
	retry       RetryConfig
	sampling    model.Sampling
}

// New creates an Agent around the given model. Returns a ConfigError when an
// option is out of range and a *tool.DuplicateToolError when two tools share
// a name.
func New(name string, m model.Model, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		MemoryPolicy: memory.NewFullHistory(),
		MaxTurns:     10,
		ToolTimeout:  15 * time.Second,
		Retry:        DefaultRetryConfig(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if name == "" {
		return nil, &ConfigError{Agent: name, Field: "name", Reason: "must not be empty"}
	}

	if m == nil {
		return nil, &ConfigError{Agent: name, Field: "model", Reason: "must not be nil"}
	}

	if opts.MaxTurns < 0 {
		return nil, &ConfigError{Agent: name, Field: "MaxTurns", Reason: "must not be negative"}
	}

	if t := opts.Temperature; t != nil && (*t < 0 || *t > 1) {
		return nil, &ConfigError{Agent: name, Field: "Temperature", Reason: fmt.Sprintf("%v outside [0, 1]", *t)}
	}

	if err := opts.Retry.validate(); err != nil {
		return nil, &ConfigError{Agent: name, Field: "Retry", Reason: err.Error()}
	}

	registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.Timeout = opts.ToolTimeout
		o.MaxParallel = opts.MaxParallelTools
	})

	for _, t := range opts.Tools {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}

	return &Agent{
		name:        name,
		description: opts.Description,
		model:       m,
		instruction: opts.Instruction,
		registry:    registry,
		policy:      opts.MemoryPolicy,
		maxTurns:    opts.MaxTurns,
		retry:       opts.Retry,
		sampling: model.Sampling{
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		},
	}, nil
}

// Name returns the agent's unique name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's description.
func (a *Agent) Description() string { return a.description }

// MaxTurns returns the per-run turn cap (0 = unlimited).
func (a *Agent) MaxTurns() int { return a.maxTurns }

// Registry exposes the agent's tool registry. Registering additional tools
// (as team wiring does) is a setup-time operation and must finish before the
// agent's first run; an in-flight run would otherwise see the tool set change
// between turns.
func (a *Agent) Registry() *tool.Registry { return a.registry }

// Info identifies the agent in run contexts and events.
func (a *Agent) Info() core.AgentInfo {
	return core.AgentInfo{Name: a.name, Type: "model"}
}
