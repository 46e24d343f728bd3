package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/legion/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instructionRunContext() *core.RunContext {
	return core.NewRunContext(
		context.Background(),
		"run-42",
		"",
		core.AgentInfo{Name: "helper", Type: "model"},
		0,
		nil,
		nil,
		nil,
	)
}

func TestInstruction(t *testing.T) {
	rc := instructionRunContext()

	t.Run("static", func(t *testing.T) {
		ins := NewInstructionFromText("You are helpful.")
		assert.True(t, ins.IsStatic())

		text, err := ins.Resolve(rc)
		require.NoError(t, err)
		assert.Equal(t, "You are helpful.", text)
	})

	t.Run("zero value resolves empty", func(t *testing.T) {
		var ins Instruction

		text, err := ins.Resolve(rc)
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("func", func(t *testing.T) {
		ins := NewInstructionFromFunc(func(rc *core.RunContext) (string, error) {
			return "Run " + rc.RunID, nil
		})
		assert.False(t, ins.IsStatic())

		text, err := ins.Resolve(rc)
		require.NoError(t, err)
		assert.Equal(t, "Run run-42", text)
	})

	t.Run("func error", func(t *testing.T) {
		ins := NewInstructionFromFunc(func(rc *core.RunContext) (string, error) {
			return "", errors.New("lookup failed")
		})

		_, err := ins.Resolve(rc)
		assert.EqualError(t, err, "lookup failed")
	})

	t.Run("template", func(t *testing.T) {
		ins := NewInstructionFromTemplate(
			"You are {{.agent}} working on {{.topic}} for run {{.run_id}}.",
			map[string]any{"topic": "geography"},
		)

		text, err := ins.Resolve(rc)
		require.NoError(t, err)
		assert.Equal(t, "You are helper working on geography for run run-42.", text)
	})

	t.Run("template without markers", func(t *testing.T) {
		ins := NewInstructionFromTemplate("Plain instructions.", nil)

		text, err := ins.Resolve(rc)
		require.NoError(t, err)
		assert.Equal(t, "Plain instructions.", text)
	})
}
