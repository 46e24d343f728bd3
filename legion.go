// Package legion provides a high-level façade over the runner and its
// services (agents, models, conversation stores, logging) enabling rapid
// construction of autonomous agent systems. Most applications interact with
// this package by:
//  1. Creating a Legion via New() (optionally overriding the conversation
//     store or logger)
//  2. Registering one or more agents (model-driven, chains, teams)
//  3. Submitting requests asynchronously (Submit) or synchronously
//     (SubmitSync / Route)
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable store and a
// structured logger.
package legion

import (
	"context"

	"github.com/hupe1980/legion/agent"
	"github.com/hupe1980/legion/core"
	"github.com/hupe1980/legion/logging"
	"github.com/hupe1980/legion/memory"
	"github.com/hupe1980/legion/runner"
)

// Options configures the Legion instance.
type Options struct {
	// Store persists conversations across runs. Defaults to in-memory.
	Store memory.Store

	// EventBufferSize sets the channel buffer size for event streaming.
	// Larger buffers reduce blocking but increase memory usage.
	EventBufferSize int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Legion is the high-level façade aggregating the underlying runner and
// services.
type Legion struct {
	opts   Options
	runner *runner.Runner
}

// New creates a new Legion instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Legion {
	opts := Options{
		Store:           memory.NewInMemoryStore(),
		EventBufferSize: 100,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(func(o *runner.Options) {
		o.Store = opts.Store
		o.EventBufferSize = opts.EventBufferSize
		o.Logger = opts.Logger
	})

	return &Legion{opts: opts, runner: r}
}

// Runner exposes the underlying runner for advanced wiring.
func (l *Legion) Runner() *runner.Runner { return l.runner }

// RegisterAgent adds an agent to the underlying runner.
func (l *Legion) RegisterAgent(a runner.Agent) error { return l.runner.Register(a) }

// RegisterTeam registers the leader and member agents and equips the leader
// with one delegation tool per member. Like all registration it is a
// setup-time operation: complete it before the leader's first run.
func (l *Legion) RegisterTeam(leader *agent.Agent, members ...runner.Agent) error {
	return l.runner.Team(leader, members...)
}

// Route runs the named agent synchronously and returns its terminal outcome.
func (l *Legion) Route(ctx context.Context, agentName, text string, optFns ...func(o *runner.RunOptions)) core.Outcome {
	return l.runner.Route(ctx, agentName, text, optFns...)
}

// Submit starts an asynchronous run returning the run id, the monitoring
// event stream and the terminal outcome channel.
func (l *Legion) Submit(
	ctx context.Context,
	agentName, text string,
	optFns ...func(o *runner.RunOptions),
) (string, <-chan core.Event, <-chan core.Outcome, error) {
	return l.runner.Submit(ctx, agentName, text, optFns...)
}

// SubmitSync is a synchronous helper that drains the async channels,
// accumulates events and returns them alongside the outcome.
func (l *Legion) SubmitSync(
	ctx context.Context,
	agentName, text string,
	optFns ...func(o *runner.RunOptions),
) (string, []core.Event, core.Outcome, error) {
	runID, eventsCh, outcomesCh, err := l.runner.Submit(ctx, agentName, text, optFns...)
	if err != nil {
		return "", nil, core.Outcome{}, err
	}

	var events []core.Event
	for event := range eventsCh {
		events = append(events, event)
	}

	outcome := <-outcomesCh

	return runID, events, outcome, nil
}

// Cancel aborts a running run by id.
func (l *Legion) Cancel(runID string) error { return l.runner.Cancel(runID) }
