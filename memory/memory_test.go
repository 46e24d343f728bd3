package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	t.Run("load unknown id yields empty slice", func(t *testing.T) {
		s := NewInMemoryStore()

		msgs, err := s.Load("nope")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		s := NewInMemoryStore()

		saved := []core.Message{
			core.NewTextMessage(core.RoleUser, "hello"),
			core.NewTextMessage(core.RoleAssistant, "hi"),
		}
		require.NoError(t, s.Save("conv-1", saved))

		loaded, err := s.Load("conv-1")
		require.NoError(t, err)
		assert.Equal(t, saved, loaded)
	})

	t.Run("returned slice is isolated", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Save("conv-1", []core.Message{core.NewTextMessage(core.RoleUser, "hello")}))

		loaded, err := s.Load("conv-1")
		require.NoError(t, err)
		loaded[0] = core.NewTextMessage(core.RoleUser, "tampered")

		again, err := s.Load("conv-1")
		require.NoError(t, err)
		assert.Equal(t, "hello", again[0].Text())
	})

	t.Run("delete", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Save("conv-1", []core.Message{core.NewTextMessage(core.RoleUser, "hello")}))

		s.Delete("conv-1")
		assert.Equal(t, 0, s.Len())
	})

	t.Run("concurrent access", func(t *testing.T) {
		s := NewInMemoryStore()

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()

				id := fmt.Sprintf("conv-%d", n%4)
				_ = s.Save(id, []core.Message{core.NewTextMessage(core.RoleUser, "x")})
				_, _ = s.Load(id)
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 4, s.Len())
	})
}

func transcript(n int) []core.Message {
	msgs := make([]core.Message, 0, n)
	for i := 0; i < n; i++ {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}

		msgs = append(msgs, core.NewTextMessage(role, fmt.Sprintf("message %d", i)))
	}

	return msgs
}

func TestFullHistoryPolicy(t *testing.T) {
	msgs := transcript(20)

	view, err := NewFullHistory().View(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, msgs, view)
}

func TestSlidingWindowPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("under window is untouched", func(t *testing.T) {
		msgs := transcript(3)

		view, err := NewSlidingWindow(10).View(ctx, msgs)
		require.NoError(t, err)
		assert.Equal(t, msgs, view)
	})

	t.Run("keeps most recent messages", func(t *testing.T) {
		msgs := transcript(10)

		view, err := NewSlidingWindow(4).View(ctx, msgs)
		require.NoError(t, err)
		require.Len(t, view, 4)
		assert.Equal(t, "message 6", view[0].Text())
		assert.Equal(t, "message 9", view[3].Text())
	})

	t.Run("never starts on an orphaned tool result", func(t *testing.T) {
		msgs := []core.Message{
			core.NewTextMessage(core.RoleUser, "question"),
			core.NewToolCallMessage(core.ToolCall{ID: "call-1", Name: "search"}),
			core.NewToolResultMessage("call-1", "search", "found", nil),
			core.NewTextMessage(core.RoleAssistant, "answer"),
		}

		// A window of 2 would start on the tool result; it must advance and
		// pin the user turn back in.
		view, err := NewSlidingWindow(2).View(ctx, msgs)
		require.NoError(t, err)
		require.Len(t, view, 2)
		assert.Equal(t, core.RoleUser, view[0].Role)
		assert.Equal(t, core.RoleAssistant, view[1].Role)
	})

	t.Run("keeps latest user turn in tool-heavy runs", func(t *testing.T) {
		msgs := []core.Message{
			core.NewTextMessage(core.RoleUser, "research the topic"),
			core.NewToolCallMessage(core.ToolCall{ID: "call-1", Name: "search"}),
			core.NewToolResultMessage("call-1", "search", "found a", nil),
			core.NewToolCallMessage(core.ToolCall{ID: "call-2", Name: "search"}),
			core.NewToolResultMessage("call-2", "search", "found b", nil),
		}

		// A window of 2 covers only the last call/result pair; the request
		// being worked on must stay in the view.
		view, err := NewSlidingWindow(2).View(ctx, msgs)
		require.NoError(t, err)
		require.Len(t, view, 3)
		assert.Equal(t, core.RoleUser, view[0].Role)
		assert.Equal(t, "research the topic", view[0].Text())
		assert.Len(t, view[1].ToolCalls(), 1)
		assert.Len(t, view[2].ToolResults(), 1)
	})

	t.Run("rejects window below one", func(t *testing.T) {
		assert.Panics(t, func() { NewSlidingWindow(0) })
	})
}

func TestSummarizeOnOverflowPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("under threshold is untouched", func(t *testing.T) {
		m := model.NewMockModel("summarizer", "test")
		msgs := transcript(5)

		view, err := NewSummarizeOnOverflow(m, 10, 4).View(ctx, msgs)
		require.NoError(t, err)
		assert.Equal(t, msgs, view)
		assert.Zero(t, m.CallCount())
	})

	t.Run("overflow summarizes older messages", func(t *testing.T) {
		m := model.NewMockModel("summarizer", "test")
		m.EnqueueTurn(model.FinalAnswer("They discussed numbers."))

		msgs := transcript(10)

		view, err := NewSummarizeOnOverflow(m, 8, 4).View(ctx, msgs)
		require.NoError(t, err)
		require.Len(t, view, 5)

		assert.Equal(t, core.RoleSystem, view[0].Role)
		assert.Contains(t, view[0].Text(), "They discussed numbers.")
		assert.Equal(t, "message 6", view[1].Text())
		assert.Equal(t, "message 9", view[4].Text())

		// The summarizer saw the older half.
		reqs := m.Requests()
		require.Len(t, reqs, 1)
		assert.Contains(t, reqs[0].Messages[0].Text(), "message 0")
		assert.NotContains(t, reqs[0].Messages[0].Text(), "message 9")
	})

	t.Run("summarizer failure degrades to window", func(t *testing.T) {
		m := model.NewMockModel("summarizer", "test")
		m.EnqueueError(errors.New("summarizer down"))

		msgs := transcript(10)

		view, err := NewSummarizeOnOverflow(m, 8, 4).View(ctx, msgs)
		require.NoError(t, err)
		require.Len(t, view, 4)
		assert.Equal(t, "message 6", view[0].Text())
	})

	t.Run("degraded view keeps latest user turn", func(t *testing.T) {
		m := model.NewMockModel("summarizer", "test")
		m.EnqueueError(errors.New("summarizer down"))

		msgs := []core.Message{core.NewTextMessage(core.RoleUser, "research the topic")}
		for i := 0; i < 4; i++ {
			id := fmt.Sprintf("call-%d", i)
			msgs = append(msgs,
				core.NewToolCallMessage(core.ToolCall{ID: id, Name: "search"}),
				core.NewToolResultMessage(id, "search", "found", nil),
			)
		}

		view, err := NewSummarizeOnOverflow(m, 8, 2).View(ctx, msgs)
		require.NoError(t, err)
		require.Len(t, view, 3)
		assert.Equal(t, core.RoleUser, view[0].Role)
		assert.Equal(t, "research the topic", view[0].Text())
	})

	t.Run("rejects bad thresholds", func(t *testing.T) {
		m := model.NewMockModel("summarizer", "test")
		assert.Panics(t, func() { NewSummarizeOnOverflow(m, 4, 4) })
		assert.Panics(t, func() { NewSummarizeOnOverflow(m, 10, 0) })
	})
}
