package memory

import "github.com/hupe1980/legion/core"

// Store persists conversation transcripts keyed by conversation id.
// Implementations must be safe for concurrent use and must not let callers
// mutate their internal state through returned slices.
type Store interface {
	// Load returns the stored messages for the conversation, oldest first.
	// An unknown id yields an empty slice, not an error.
	Load(conversationID string) ([]core.Message, error)

	// Save replaces the stored transcript for the conversation.
	Save(conversationID string, messages []core.Message) error
}
