// Package workflow implements the stackful-coroutine workflow runtime: each
// workflow body runs on its own goroutine and suspends by yielding work
// items onto a shared event channel, blocking until the driver resumes it
// with a joined result. This mirrors the suspend/resume shape used by
// Cadence's internal workflow dispatcher — a goroutine per workflow,
// channel-based handoff, a single external driver advancing everything —
// adapted here to a single shared events channel rather than one channel
// pair per workflow, since the coordinator only ever needs to observe "some
// workflow has something to say", not any particular one.
package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/northbridge-labs/taskflow/barrier"
	"github.com/northbridge-labs/taskflow/item"
)

// Func is a workflow body. It runs to completion on its own goroutine,
// suspending via Context.Yield whenever it needs a work item's result.
// Its return value becomes the workflow's terminal error (nil on success).
type Func func(ctx *Context) error

// Event is what a running workflow instance sends on the shared events
// channel, either to request a yield or to report its own completion.
// Exactly one of Yield or Done describes the event.
type Event struct {
	WorkflowID string

	// Yield is set when the workflow is suspending to wait on a batch of
	// items. Resume is the channel the driver must send the joined
	// barrier.Result on exactly once, to wake the workflow back up.
	Yield  *item.Yielded
	Resume chan<- barrier.Result

	// Done is set once the workflow body has returned. Err is its
	// terminal result.
	Done bool
	Err  error
}

// Start launches fn on its own goroutine and returns the instance's
// identity. The workflow communicates with its driver exclusively through
// events, which the caller must keep draining — a workflow goroutine that
// yields will block forever on its Resume channel if nothing ever answers.
func Start(ctx context.Context, events chan<- Event, fn Func) string {
	id := uuid.Must(uuid.NewV7()).String()

	wfCtx := &Context{ctx: ctx, id: id, events: events}

	go func() {
		err := fn(wfCtx)
		events <- Event{WorkflowID: id, Done: true, Err: err}
	}()

	return id
}
