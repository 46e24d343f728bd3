package runner

import (
	"fmt"

	"github.com/hupe1980/legion/agent"
	"github.com/hupe1980/legion/tool"
)

// Team registers the leader and its member agents and equips the leader with
// one delegation tool per member (delegate_to_<member>). The leader decides
// at runtime which member to hand a sub-request to; cycle detection on the
// delegation chain prevents members from delegating back up.
//
// Team mutates the leader's tool registry and therefore belongs to setup:
// call it before the leader's first run, alongside Register.
//
// Example:
//
//	researcher, _ := agent.New("researcher", m, ...)
//	writer, _ := agent.New("writer", m, ...)
//	leader, _ := agent.New("editor", m, ...)
//	if err := r.Team(leader, researcher, writer); err != nil { ... }
//	outcome := r.Route(ctx, "editor", "Write a briefing on solar storms.")
func (r *Runner) Team(leader *agent.Agent, members ...Agent) error {
	if len(members) == 0 {
		return fmt.Errorf("team %q: at least one member is required", leader.Name())
	}

	for _, m := range members {
		if err := r.Register(m); err != nil {
			return err
		}

		description := m.Description()
		if description == "" {
			description = fmt.Sprintf("Hand a sub-request to the %q agent.", m.Name())
		}

		if err := leader.Registry().Register(tool.NewDelegateTool(m.Name(), description)); err != nil {
			return err
		}
	}

	return r.Register(leader)
}
