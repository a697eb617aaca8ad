package workflow

import (
	"context"

	"github.com/northbridge-labs/taskflow/barrier"
	"github.com/northbridge-labs/taskflow/item"
)

// Context is passed into every workflow Func. It is the only way a
// workflow body suspends itself: Yield blocks the calling goroutine until
// the driver has dispatched every item in the batch and joined their
// results through a barrier.
type Context struct {
	ctx    context.Context
	id     string
	events chan<- Event
}

// Ctx returns the context.Context the workflow was started with, for
// workflows that want to observe cancellation directly (e.g. to abandon
// a long retry loop) rather than only finding out via a failed Yield.
func (c *Context) Ctx() context.Context { return c.ctx }

// ID returns this workflow instance's identity.
func (c *Context) ID() string { return c.id }

// Yield suspends the calling workflow goroutine until every item in items
// has completed (or one of them fails), and returns the joined barrier
// Result in the same order items was given. A single yielded item and a
// batch of several both go through Yield; callers that only have one item
// simply pass one.
func (c *Context) Yield(items ...item.Item) barrier.Result {
	resume := make(chan barrier.Result, 1)
	c.events <- Event{
		WorkflowID: c.id,
		Yield:      &item.Yielded{Items: items},
		Resume:     resume,
	}
	return <-resume
}

// YieldOne is a convenience wrapper for the common single-item yield,
// returning that item's own error directly instead of a barrier.Result.
func (c *Context) YieldOne(it item.Item) error {
	res := c.Yield(it)
	return res.Err
}
