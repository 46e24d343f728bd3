package core

import (
	"fmt"
	"time"
)

// Conversation is the ordered message log for one logical interaction. It is
// exclusively owned by a single execution loop instance, which is the only
// writer, so no internal locking is required.
//
// Contract:
//   - The message sequence is monotonically append-only; no message is ever
//     edited or removed once recorded.
//   - Every tool result must reference a tool call issued earlier in the same
//     conversation; Append rejects orphaned results.
//   - Snapshot returns a defensive copy so callers cannot mutate the log.
type Conversation struct {
	ID       string
	Created  time.Time
	messages []Message
	issued   map[string]bool // tool call ids issued so far
}

// NewConversation creates an empty conversation. Pass prior messages (e.g.
// loaded from a memory store) to seed it; seeded tool calls register their
// ids so historical results remain valid.
func NewConversation(id string, prior ...Message) *Conversation {
	c := &Conversation{
		ID:      id,
		Created: time.Now().UTC(),
		issued:  map[string]bool{},
	}
	for _, m := range prior {
		for _, tc := range m.ToolCalls() {
			c.issued[tc.ID] = true
		}
		c.messages = append(c.messages, m)
	}
	return c
}

// Append records a message at the end of the log. Tool calls carried by the
// message register their ids; a tool result whose id was never issued in this
// conversation is rejected.
func (c *Conversation) Append(m Message) error {
	for _, tr := range m.ToolResults() {
		if !c.issued[tr.ID] {
			return fmt.Errorf("conversation %s: tool result %q references unknown call id %q", c.ID, tr.Name, tr.ID)
		}
	}
	for _, tc := range m.ToolCalls() {
		c.issued[tc.ID] = true
	}
	c.messages = append(c.messages, m)
	return nil
}

// Snapshot returns a copy of the ordered message sequence.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of recorded messages.
func (c *Conversation) Len() int { return len(c.messages) }

// Last returns the most recent message and true, or a zero message and false
// when the conversation is empty.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}
