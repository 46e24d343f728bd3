package core

import "time"

// EventType categorizes monitoring events emitted while a run progresses.
type EventType string

const (
	// EventRunStarted marks the start of an execution loop run.
	EventRunStarted EventType = "run.started"
	// EventMessage marks a message appended to the conversation (user,
	// assistant or tool role).
	EventMessage EventType = "message"
	// EventToolExecuted marks the completion of a single tool invocation.
	EventToolExecuted EventType = "tool.executed"
	// EventDelegation marks a delegation hand-off to another agent.
	EventDelegation EventType = "delegation"
	// EventRunCompleted marks the terminal outcome of a run.
	EventRunCompleted EventType = "run.completed"
)

// Event is the unit of observability streamed to callers during a run. After
// emission it should be treated as immutable. Message is set for EventMessage;
// Outcome is set for EventRunCompleted.
type Event struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Agent     string    `json:"agent"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Outcome   *Outcome  `json:"outcome,omitempty"`
}

// NewEvent creates a bare event bound to a run and authoring agent.
func NewEvent(runID, agent string, typ EventType) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Agent:     agent,
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageEvent constructs an event recording a message appended to the
// conversation.
func NewMessageEvent(runID, agent string, msg Message) Event {
	e := NewEvent(runID, agent, EventMessage)
	e.Message = &msg
	return e
}

// NewToolExecutedEvent records the completion of a tool invocation, carrying
// the result as a tool-role message.
func NewToolExecutedEvent(runID, agent, tool string, result ToolResult) Event {
	e := NewEvent(runID, agent, EventToolExecuted)
	e.Tool = tool
	msg := Message{Role: RoleTool, Parts: []Part{ToolResultPart{ToolResult: result}}}
	e.Message = &msg
	return e
}

// NewRunCompletedEvent records the terminal outcome of a run.
func NewRunCompletedEvent(runID, agent string, outcome Outcome) Event {
	e := NewEvent(runID, agent, EventRunCompleted)
	e.Outcome = &outcome
	return e
}
