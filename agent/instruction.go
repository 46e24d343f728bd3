package agent

import (
	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/internal/util"
)

// Provider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from run identity, environment, etc.
type Provider interface {
	Instruction(*core.RunContext) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(*core.RunContext) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(rc *core.RunContext) (string, error) { return f(rc) }

// Instruction represents either a static instruction string or a dynamic provider.
// This mirrors a union of string | provider in a Go-idiomatic way.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(*core.RunContext) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// NewInstructionFromTemplate creates an Instruction rendered from a Go
// template and a variable map on every resolve. The template additionally
// sees {{.agent}} and {{.run_id}} from the run context.
func NewInstructionFromTemplate(text string, vars map[string]any) Instruction {
	return Instruction{provider: Func(func(rc *core.RunContext) (string, error) {
		state := make(map[string]any, len(vars)+2)
		for k, v := range vars {
			state[k] = v
		}

		state["agent"] = rc.Agent.Name
		state["run_id"] = rc.RunID

		return util.RenderTemplate(text, state)
	})}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(rc *core.RunContext) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(rc)
	}
	return i.text, nil
}
