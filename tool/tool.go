// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (APIs, computations, side effects) with schema
// validated arguments, consistent error handling and rich metadata for LLM guidance.
package tool

import (
	"fmt"

	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/schema"
)

// Error codes attached to *ToolError for uniform downstream handling.
const (
	CodeValidation = "VALIDATION_ERROR" // arguments failed schema validation, tool never ran
	CodeExecution  = "EXECUTION_ERROR"  // tool ran and returned an error
	CodeTimeout    = "TIMEOUT"          // tool exceeded its execution timeout
	CodePanic      = "PANIC"            // tool panicked, recovered by the registry
	CodeUnknown    = "UNKNOWN_TOOL"     // requested tool is not registered
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools are registered with agents to enable function calling, allowing agents
// to perform actions beyond text generation such as API calls, calculations,
// database queries, or any other programmatic operations. The registry
// validates arguments against Schema before Call runs, so implementations
// receive typed, already-validated argument maps.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions (snake_case recommended)
//   - Be safe for concurrent use; the registry may run calls in parallel
//   - Return *ToolError for structured failures (other errors are wrapped)
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the model to help it decide when to use the tool.
	Description() string

	// Schema returns the compiled parameter schema. The registry validates
	// model-supplied arguments against it before Call is invoked; Raw() is
	// what gets advertised to providers.
	Schema() *schema.Schema

	// Call executes the tool with validated arguments and a ToolContext giving
	// access to run identifiers, logging and delegation.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError is re-exported for callers that only import the tool package.
type ValidationError = schema.ValidationError

// ToolError represents a failure in the tool calling pipeline. The Code field
// categorizes the failure so the agent loop can distinguish arguments the
// model should fix (CodeValidation) from tool-side faults.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// DuplicateToolError reports an attempt to register two tools under the same
// name. Registration order decides the survivor; the second Register fails.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}
