package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/legion/core"
)

// MockModel is a lightweight in-memory Model useful for tests & examples. It
// replays a scripted sequence of turns (or errors) in enqueue order and falls
// back to canned prompt/response pairs, then to an echo, once the script is
// exhausted. Every request is recorded for assertions.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	script    []scripted
	responses map[string]string
	requests  []Request
}

type scripted struct {
	turn *Turn
	err  error
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// EnqueueTurn appends a turn to the script.
func (m *MockModel) EnqueueTurn(t *Turn) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, scripted{turn: t})

	return m
}

// EnqueueError appends an error to the script.
func (m *MockModel) EnqueueError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, scripted{err: err})

	return m
}

// AddResponse registers a deterministic canned completion for an input prompt,
// consulted when the script is exhausted.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[prompt] = response
}

// Requests returns a copy of every request seen so far, oldest first.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	copy(out, m.requests)

	return out
}

// CallCount returns how many completions have been requested.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, req Request) (*Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]

		if next.err != nil {
			return nil, next.err
		}

		return next.turn, nil
	}

	input := lastUserText(req.Messages)

	if canned, ok := m.responses[input]; ok {
		return FinalAnswer(canned), nil
	}

	return FinalAnswer(fmt.Sprintf("Mock response to: %s", input)), nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

func lastUserText(messages []core.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == core.RoleUser {
			return messages[i].Text()
		}
	}

	return ""
}
