package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/model"
)

// RegistryOptions configures tool execution behavior.
type RegistryOptions struct {
	// Timeout bounds each tool execution. Zero means no timeout.
	Timeout time.Duration
	// MaxParallel caps concurrent executions in InvokeAll. Values below 1
	// mean no explicit limit.
	MaxParallel int
}

// Registry holds the tools available to a single agent and runs the full
// invocation pipeline: lookup, argument parsing, schema validation, bounded
// execution with panic recovery, and result shaping. Invoke never returns a
// Go error; every failure mode becomes an error-carrying ToolResult so the
// model can react to it.
//
// A Registry is safe for concurrent use. Registration normally happens at
// agent construction time, invocation during runs.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string // registration order, drives Definitions

	timeout     time.Duration
	maxParallel int
}

// NewRegistry creates an empty tool registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		tools:       make(map[string]Tool),
		timeout:     opts.Timeout,
		maxParallel: opts.MaxParallel,
	}
}

// Register adds a tool under its name. Registering a second tool with an
// already-taken name fails with *DuplicateToolError and leaves the first
// registration in place.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return &DuplicateToolError{Name: name}
	}

	r.tools[name] = t
	r.order = append(r.order, name)

	return nil
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]

	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)

	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// Definitions returns provider-facing tool definitions in registration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]

		var params map[string]any
		if s := t.Schema(); s != nil {
			params = s.Raw()
		}

		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  params,
		})
	}

	return defs
}

// Invoke runs a single tool call through the full pipeline and returns its
// result. It never returns a Go error: unknown tools, malformed arguments,
// validation failures, panics and timeouts all surface as the Error field of
// the returned ToolResult, phrased so the model can correct itself on the
// next turn. Validation failures never execute the tool.
func (r *Registry) Invoke(runCtx *core.RunContext, call core.ToolCall) core.ToolResult {
	toolCtx := core.NewToolContext(runCtx, call.ID)

	result, err := r.invoke(toolCtx, call)

	res := core.ToolResult{ID: call.ID, Name: call.Name}
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Response = result
	}

	_ = runCtx.EmitEvent(core.NewToolExecutedEvent(runCtx.RunID, runCtx.Agent.Name, call.Name, res))

	return res
}

func (r *Registry) invoke(toolCtx *core.ToolContext, call core.ToolCall) (any, error) {
	t, ok := r.Resolve(call.Name)
	if !ok {
		toolCtx.LogWarn("tool.invoke.unknown", "tool", call.Name, "call_id", call.ID)

		return nil, NewToolError(call.Name, "tool is not registered", CodeUnknown)
	}

	args, err := parseArguments(call.Arguments)
	if err != nil {
		return nil, &ToolError{
			Tool:    call.Name,
			Message: fmt.Sprintf("arguments are not valid JSON: %v", err),
			Code:    CodeValidation,
		}
	}

	if s := t.Schema(); s != nil {
		validated, err := s.Validate(args)
		if err != nil {
			toolCtx.LogWarn("tool.invoke.validation_failed", "tool", call.Name, "error", err.Error())

			return nil, &ToolError{
				Tool:    call.Name,
				Message: err.Error(),
				Code:    CodeValidation,
				Details: err,
			}
		}

		args = validated
	}

	return r.execute(toolCtx, t, args)
}

// execute runs the tool under the configured timeout with panic recovery.
// The tool goroutine keeps running after a timeout fires; its context is
// cancelled so well-behaved tools unwind promptly.
func (r *Registry) execute(toolCtx *core.ToolContext, t Tool, args map[string]any) (any, error) {
	ctx := toolCtx.Context()
	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()

		toolCtx = toolCtx.WithContext(ctx)
	}

	type callResult struct {
		value any
		err   error
	}

	done := make(chan callResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				toolCtx.LogError("tool.invoke.panic", "tool", t.Name(), "recover", rec)
				done <- callResult{err: NewToolError(t.Name(), fmt.Sprintf("panic: %v", rec), CodePanic)}
			}
		}()

		value, err := t.Call(toolCtx, args)
		done <- callResult{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			toolCtx.LogWarn("tool.invoke.timeout", "tool", t.Name(), "timeout", r.timeout.String())

			return nil, NewToolError(t.Name(), fmt.Sprintf("execution exceeded %s", r.timeout), CodeTimeout)
		}

		return nil, ctx.Err()
	}
}

// InvokeAll executes a batch of tool calls, possibly in parallel, and returns
// one result per call in the original request order regardless of completion
// order. Cancellation is checked before each call is started; calls already
// in flight run to completion, calls not yet started are reported as
// cancelled results.
func (r *Registry) InvokeAll(runCtx *core.RunContext, calls []core.ToolCall) []core.ToolResult {
	n := len(calls)
	if n == 0 {
		return nil
	}

	// Fast path: single call, execute inline.
	if n == 1 {
		return []core.ToolResult{r.Invoke(runCtx, calls[0])}
	}

	maxPar := r.maxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]core.ToolResult, n)

	var wg sync.WaitGroup

	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
	for i := range calls {
		if runCtx.Context.Err() != nil {
			results[i] = core.ToolResult{
				ID:    calls[i].ID,
				Name:  calls[i].Name,
				Error: "run cancelled before execution",
			}

			continue
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()

			results[idx] = r.Invoke(runCtx, call)
		}(i, calls[i])
	}

	wg.Wait()

	runCtx.LogDebug(
		"tool.batch.complete",
		"agent", runCtx.Agent.Name,
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results
}

// parseArguments decodes the raw JSON argument payload of a tool call. Empty
// payloads decode to an empty map.
func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}

	if args == nil {
		args = map[string]any{}
	}

	return args, nil
}
