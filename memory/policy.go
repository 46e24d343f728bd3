package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/model"
)

// Policy shapes the history snapshot handed to the model on each turn. The
// stored conversation stays complete; View only narrows the per-request view.
type Policy interface {
	View(ctx context.Context, messages []core.Message) ([]core.Message, error)
}

// FullHistoryPolicy sends the complete transcript on every turn.
type FullHistoryPolicy struct{}

// NewFullHistory constructs the identity policy.
func NewFullHistory() *FullHistoryPolicy { return &FullHistoryPolicy{} }

// View implements Policy.
func (*FullHistoryPolicy) View(_ context.Context, messages []core.Message) ([]core.Message, error) {
	return messages, nil
}

// SlidingWindowPolicy keeps the most recent windowSize messages. The window
// start skips leading tool results so a result never appears without the
// assistant turn that requested it, and the latest user turn is pinned into
// the view when the cut would drop it.
type SlidingWindowPolicy struct {
	windowSize int
}

// NewSlidingWindow creates a SlidingWindowPolicy keeping the last windowSize
// messages. Panics if windowSize < 1.
func NewSlidingWindow(windowSize int) *SlidingWindowPolicy {
	if windowSize < 1 {
		panic("memory: SlidingWindow windowSize must be >= 1")
	}

	return &SlidingWindowPolicy{windowSize: windowSize}
}

// View implements Policy.
func (p *SlidingWindowPolicy) View(_ context.Context, messages []core.Message) ([]core.Message, error) {
	return pinLatestUser(messages, trimToWindow(messages, p.windowSize)), nil
}

// trimToWindow returns the last n messages, advanced past any leading tool
// results left orphaned by the cut.
func trimToWindow(messages []core.Message, n int) []core.Message {
	if len(messages) <= n {
		return messages
	}

	start := len(messages) - n
	for start < len(messages) && messages[start].Role == core.RoleTool {
		start++
	}

	return messages[start:]
}

// pinLatestUser prepends the most recent user message from the full
// transcript when the window no longer contains one, so the model always
// sees the request it is working on. window must be a tail slice of
// messages, as trimToWindow produces.
func pinLatestUser(messages, window []core.Message) []core.Message {
	for _, m := range window {
		if m.Role == core.RoleUser {
			return window
		}
	}

	for i := len(messages) - len(window) - 1; i >= 0; i-- {
		if messages[i].Role != core.RoleUser {
			continue
		}

		out := make([]core.Message, 0, len(window)+1)
		out = append(out, messages[i])
		out = append(out, window...)

		return out
	}

	return window
}

// SummarizeOnOverflowPolicy compresses older history into a model-written
// summary once the transcript exceeds maxMessages, keeping the most recent
// keep messages verbatim after the summary. If summarization fails the
// policy degrades to the sliding window cut so a run never dies on a
// summarizer hiccup.
type SummarizeOnOverflowPolicy struct {
	model       model.Model
	maxMessages int
	keep        int
}

// NewSummarizeOnOverflow creates the policy. maxMessages is the overflow
// threshold, keep the number of recent messages preserved verbatim. Panics
// unless maxMessages > keep >= 1.
func NewSummarizeOnOverflow(m model.Model, maxMessages, keep int) *SummarizeOnOverflowPolicy {
	if keep < 1 || maxMessages <= keep {
		panic("memory: SummarizeOnOverflow requires maxMessages > keep >= 1")
	}

	return &SummarizeOnOverflowPolicy{model: m, maxMessages: maxMessages, keep: keep}
}

// View implements Policy.
func (p *SummarizeOnOverflowPolicy) View(ctx context.Context, messages []core.Message) ([]core.Message, error) {
	if len(messages) <= p.maxMessages {
		return messages, nil
	}

	recent := trimToWindow(messages, p.keep)
	older := messages[:len(messages)-len(recent)]

	kept := pinLatestUser(messages, recent)

	summary, err := p.summarize(ctx, older)
	if err != nil {
		return kept, nil
	}

	out := make([]core.Message, 0, len(kept)+1)
	out = append(out, core.NewTextMessage(core.RoleSystem, "Summary of the earlier conversation: "+summary))
	out = append(out, kept...)

	return out, nil
}

func (p *SummarizeOnOverflowPolicy) summarize(ctx context.Context, older []core.Message) (string, error) {
	var transcript strings.Builder
	for _, msg := range older {
		if text := msg.Text(); text != "" {
			fmt.Fprintf(&transcript, "%s: %s\n", msg.Role, text)
		}

		for _, call := range msg.ToolCalls() {
			fmt.Fprintf(&transcript, "%s called tool %s(%s)\n", msg.Role, call.Name, call.Arguments)
		}

		for _, result := range msg.ToolResults() {
			fmt.Fprintf(&transcript, "tool %s returned: %s\n", result.Name, model.ToolResultContent(result))
		}
	}

	// Deterministic compression.
	temperature := 0.0

	turn, err := p.model.Complete(ctx, model.Request{
		Instructions: "Summarize the following conversation transcript. Preserve facts, decisions, names and numbers the participants may rely on later. Be concise.",
		Messages:     []core.Message{core.NewTextMessage(core.RoleUser, transcript.String())},
		Sampling:     model.Sampling{Temperature: &temperature},
	})
	if err != nil {
		return "", err
	}

	if turn.Kind != model.TurnFinalAnswer || turn.Text == "" {
		return "", fmt.Errorf("summarizer returned no text")
	}

	return turn.Text, nil
}
