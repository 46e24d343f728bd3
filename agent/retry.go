package agent

import (
	"fmt"
	"time"

	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/model"
)

// RetryConfig governs how completion calls are retried when the provider
// reports a transient failure. Retries never consume thinking turns.
type RetryConfig struct {
	// MaxAttempts is the total number of tries including the first one.
	MaxAttempts int
	// BaseDelay is the backoff for the first retry; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff, including provider retry-after hints.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the retry policy used when none is configured:
// 3 attempts with exponential backoff from 500ms, capped at 8s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

func (c RetryConfig) validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MaxAttempts must be at least 1, got %d", c.MaxAttempts)
	}

	if c.BaseDelay < 0 || c.MaxDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}

	return nil
}

// delay computes the wait before the given retry (1-based). A provider hint
// takes precedence over the exponential schedule; both are capped at MaxDelay.
func (c RetryConfig) delay(retry int, hint time.Duration) time.Duration {
	d := c.BaseDelay << (retry - 1)
	if hint > 0 {
		d = hint
	}

	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}

	return d
}

// complete calls the model, retrying transient failures per the agent's retry
// policy. Non-retryable errors and cancellation return immediately.
func (a *Agent) complete(runCtx *core.RunContext, req model.Request) (*model.Turn, error) {
	for attempt := 1; ; attempt++ {
		turn, err := a.model.Complete(runCtx.Context, req)
		if err == nil {
			return turn, nil
		}

		retryable, hint := model.Retryable(err)
		if !retryable || attempt >= a.retry.MaxAttempts {
			return nil, err
		}

		delay := a.retry.delay(attempt, hint)

		runCtx.LogWarn("Completion failed, retrying", "agent", a.name, "attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-runCtx.Done():
			timer.Stop()
			return nil, runCtx.Err()
		case <-timer.C:
		}
	}
}
