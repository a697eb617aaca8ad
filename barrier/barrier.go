// Package barrier implements the join that reunites a yielded batch of work
// items back into a single completion for the workflow that yielded them.
//
// A Barrier preserves the order in which items were yielded regardless of
// the order in which they complete, and resolves on the first error seen
// among its items. Once resolved, later completions for other items in the
// same batch are ignored: they are not recorded and do not change the
// outcome.
package barrier

import (
	"github.com/northbridge-labs/taskflow/item"
)

// Result is what a Barrier delivers once every item in its batch has
// completed, or as soon as one of them fails.
type Result struct {
	// Items holds every item.Item in the original yield order. A sibling
	// that had not completed by the time the barrier resolved due to an
	// earlier error is still present here in its incomplete state.
	Items []item.Item
	// Err is the error of the first item to complete with an error, in
	// completion order — not necessarily the earliest one in yield order.
	Err error
}

// Barrier tracks completions for a single yielded batch. It is built and
// owned exclusively by the coordinator's driver goroutine: every Arrive
// call for a given batch is serialized through that one goroutine, so
// Barrier itself holds no lock.
type Barrier struct {
	items     []item.Item
	remaining int
	firstErr  error
	resolved  bool
}

// New builds a Barrier over items, which must be yielded in the order the
// caller wants the eventual Result.Items to preserve.
func New(items []item.Item) *Barrier {
	return &Barrier{
		items:     items,
		remaining: len(items),
	}
}

// Items returns every item.Item this barrier was built over, in yield
// order. Used by the coordinator to purge sibling pending-map entries once
// the barrier resolves due to an early error.
func (b *Barrier) Items() []item.Item {
	return b.items
}

// ItemAt returns the item.Item held at idx: the reference handed to New
// until Arrive records a completion for that index, and the completed item
// afterwards. It is available even before that item has completed — the
// coordinator uses it to recover a sub-workflow's SubworkflowItem so it can
// stamp the sub-workflow's outcome before routing the item through
// completion.
func (b *Barrier) ItemAt(idx int) item.Item {
	return b.items[idx]
}

// Arrive records that the item at index idx has completed (successfully or
// with an error). It returns true exactly once: the first call that leaves
// the barrier with no remaining incomplete items, or the first call that
// carries an error. Every subsequent call returns false, even if it too
// carries an error or is the "last" remaining item — the barrier only ever
// resolves once.
func (b *Barrier) Arrive(idx int, completed item.Item, err error) bool {
	if b.resolved {
		return false
	}

	b.items[idx] = completed
	b.remaining--

	if err != nil && b.firstErr == nil {
		b.firstErr = err
	}

	ready := b.firstErr != nil || b.remaining == 0
	if !ready {
		return false
	}

	b.resolved = true
	return true
}

// Result materializes the barrier's outcome. Callers must only call this
// after Arrive has returned true.
func (b *Barrier) Result() Result {
	return Result{
		Items: b.items,
		Err:   b.firstErr,
	}
}
