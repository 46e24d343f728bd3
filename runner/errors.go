package runner

import (
	"fmt"
	"strings"
)

// UnknownAgentError reports a route or delegation target that is not
// registered with the runner.
type UnknownAgentError struct {
	Name string
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("agent %q is not registered", e.Name)
}

// DuplicateAgentError reports an attempt to register two agents under the
// same name.
type DuplicateAgentError struct {
	Name string
}

func (e *DuplicateAgentError) Error() string {
	return fmt.Sprintf("agent %q is already registered", e.Name)
}

// UnknownRunError reports a cancel request for a run id that is not active.
type UnknownRunError struct {
	RunID string
}

func (e *UnknownRunError) Error() string {
	return fmt.Sprintf("run %q is not active", e.RunID)
}

// DelegationCycleError reports a delegation that would re-enter an agent
// already active in the call chain. It is raised before the target performs
// any model or tool call.
type DelegationCycleError struct {
	Agent string   // The re-entered agent
	Chain []string // Active chain at the time of the attempt, outermost first
}

func (e *DelegationCycleError) Error() string {
	return fmt.Sprintf("delegation cycle: agent %q is already active in chain %s",
		e.Agent, strings.Join(e.Chain, " -> "))
}
