package core

// OutcomeStatus enumerates the terminal states of an execution loop run.
type OutcomeStatus string

const (
	// StatusAnswered means the model produced a final answer.
	StatusAnswered OutcomeStatus = "answered"
	// StatusFailed means an unrecoverable error ended the run.
	StatusFailed OutcomeStatus = "failed"
	// StatusAborted means a limit (turn cap, cancellation, deadline) ended
	// the run before the model converged. Aborted is a normal terminal
	// outcome, not an error escaping the loop.
	StatusAborted OutcomeStatus = "aborted"
)

// Outcome is the single well-typed terminal result of one run. Exactly one of
// Text / Err is meaningful depending on Status; Reason carries a short
// machine-readable cause for failed and aborted runs.
type Outcome struct {
	Status OutcomeStatus
	Text   string // Final answer text (StatusAnswered)
	Reason string // Cause label, e.g. "turn_limit", "cancelled", "provider_rejected"
	Err    error  // Underlying error (StatusFailed), nil otherwise
	Turns  int    // Thinking turns consumed by the run
}

// Answered constructs a successful outcome carrying the final answer text.
func Answered(text string, turns int) Outcome {
	return Outcome{Status: StatusAnswered, Text: text, Turns: turns}
}

// Failed constructs a failed outcome wrapping the fatal error.
func Failed(reason string, err error, turns int) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason, Err: err, Turns: turns}
}

// Aborted constructs an aborted outcome with a cause label.
func Aborted(reason string, turns int) Outcome {
	return Outcome{Status: StatusAborted, Reason: reason, Turns: turns}
}

// IsAnswered reports whether the run converged on a final answer.
func (o Outcome) IsAnswered() bool { return o.Status == StatusAnswered }
