package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/northbridge-labs/taskflow/barrier"
	"github.com/northbridge-labs/taskflow/item"
	"github.com/northbridge-labs/taskflow/observability"
	"github.com/northbridge-labs/taskflow/workflow"
)

// batch tracks one yielded barrier from the moment its items are
// registered in the pending map until the barrier resolves and the
// waiting workflow is resumed.
type batch struct {
	barrier    *barrier.Barrier
	resume     chan<- barrier.Result
	workflowID string
}

// pendingEntry is the pending map's value: which batch an in-flight item
// belongs to, and at which index.
type pendingEntry struct {
	batch *batch
	idx   int
}

// workflowInfo tracks a running workflow instance: either it is top-level,
// in which case resultCh reports its outcome to whoever called Submit, or
// it was started to satisfy a SubworkflowItem yielded by a parent workflow,
// in which case parentItemID names the pending entry to resume once this
// instance finishes.
type workflowInfo struct {
	resultCh     chan error
	parentItemID string
}

// driver is the Workflow Driver / Coordinator module's single mutator
// goroutine. It is the only goroutine that ever reads or writes pending,
// workflows, or the registry's worker set at runtime — exactly the
// invariant spec.md requires to make the pending map and work map safe
// without locking. It is grounded on the teacher's hub.messageLoop: a
// single goroutine draining a handful of channels and dispatching by
// firing off goroutines for anything that must not block the loop itself.
type driver struct {
	registry    map[item.Kind]registeredWorker
	events      chan workflow.Event
	completions chan item.Item
	submissions chan submissionRequest

	pending   map[string]*pendingEntry
	workflows map[string]*workflowInfo

	failFast bool
	metrics  *Metrics
	logger   *slog.Logger
	observer observability.Observer
}

type submissionRequest struct {
	fn       workflow.Func
	resultCh chan error
}

func newDriver(reg map[item.Kind]registeredWorker, bufferSize int, failFast bool, metrics *Metrics, logger *slog.Logger, observer observability.Observer) *driver {
	return &driver{
		registry:    reg,
		events:      make(chan workflow.Event, bufferSize),
		completions: make(chan item.Item, bufferSize),
		submissions: make(chan submissionRequest, bufferSize),
		pending:     make(map[string]*pendingEntry),
		workflows:   make(map[string]*workflowInfo),
		failFast:    failFast,
		metrics:     metrics,
		logger:      logger,
		observer:    observer,
	}
}

func (d *driver) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case req := <-d.submissions:
			id := workflow.Start(ctx, d.events, req.fn)
			d.workflows[id] = &workflowInfo{resultCh: req.resultCh}
			d.metrics.workflowsStarted.Add(1)
			d.observer.OnEvent(ctx, observability.Event{
				Type:      EventWorkflowStart,
				Level:     observability.LevelInfo,
				Timestamp: time.Now(),
				Source:    "coordinator.driver",
				Data:      map[string]any{"workflow_id": id},
			})

		case it := <-d.completions:
			d.handleCompletion(ctx, it)

		case ev := <-d.events:
			if ev.Yield != nil {
				d.handleYield(ctx, ev)
			} else {
				d.handleDone(ctx, ev)
			}
		}
	}
}

func (d *driver) handleYield(ctx context.Context, ev workflow.Event) {
	items := ev.Yield.Items

	// An empty batch has nothing to dispatch and nothing that will ever
	// call back through d.completions, so it must resume immediately
	// with an empty result rather than be registered as a batch awaiting
	// arrivals that can never come.
	if len(items) == 0 {
		ev.Resume <- barrier.Result{}
		return
	}

	b := &batch{
		barrier:    barrier.New(items),
		resume:     ev.Resume,
		workflowID: ev.WorkflowID,
	}

	// Register every sibling before dispatching any of them, so a
	// dispatch-time failure can never resolve the barrier while later
	// siblings in the same batch have not yet been recorded.
	for idx, it := range items {
		d.pending[it.ID()] = &pendingEntry{batch: b, idx: idx}
	}
	for _, it := range items {
		d.dispatch(ctx, it)
	}
}

func (d *driver) dispatch(ctx context.Context, it item.Item) {
	if it.Kind() == item.KindWorkflow {
		sw, ok := it.(*workflow.SubworkflowItem)
		if !ok {
			d.failDispatch(ctx, it, fmt.Errorf("coordinator: item kind %q is not a *workflow.SubworkflowItem", it.Kind()))
			return
		}
		id := workflow.Start(ctx, d.events, sw.Fn)
		d.workflows[id] = &workflowInfo{parentItemID: sw.ID()}
		d.metrics.workflowsStarted.Add(1)
		return
	}

	w, ok := d.registry[it.Kind()]
	if !ok {
		d.failDispatch(ctx, it, fmt.Errorf("coordinator: no worker registered for item kind %q", it.Kind()))
		return
	}

	d.observer.OnEvent(ctx, observability.Event{
		Type:      EventItemDispatch,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "coordinator.driver",
		Data:      map[string]any{"item_id": it.ID(), "kind": string(it.Kind())},
	})

	if err := w.submit(ctx, it); err != nil {
		d.failDispatch(ctx, it, err)
		return
	}
	d.metrics.itemsDispatched.Add(1)
}

// failDispatch reports a dispatch-time failure through the same
// asynchronous completions path every worker result takes. It must never
// resolve the item's barrier inline: handleYield may still be registering
// this item's siblings in the pending map when dispatch fails for an
// earlier one, so routing through the channel guarantees the failure is
// only processed after the driver returns to its select loop — by which
// point every sibling is registered.
func (d *driver) failDispatch(ctx context.Context, it item.Item, err error) {
	it.SetErr(err)
	it.SetDone(true)

	d.observer.OnEvent(ctx, observability.Event{
		Type:      EventItemDispatchFail,
		Level:     observability.LevelWarning,
		Timestamp: time.Now(),
		Source:    "coordinator.driver",
		Data:      map[string]any{"item_id": it.ID(), "error": err.Error()},
	})

	go func() {
		select {
		case d.completions <- it:
		case <-ctx.Done():
		}
	}()
}

// handleCompletion resolves the batch that it belongs to, if any. A lookup
// miss means this item is a straggler whose batch already resolved via a
// sibling's error and purged it — spec.md's documented "discard" behavior
// for items still in flight when a barrier resolves early.
func (d *driver) handleCompletion(ctx context.Context, it item.Item) {
	entry, ok := d.pending[it.ID()]
	if !ok {
		return
	}
	delete(d.pending, it.ID())

	ready := entry.batch.barrier.Arrive(entry.idx, it, it.Err())
	if !ready {
		return
	}

	res := entry.batch.barrier.Result()
	for _, sibling := range entry.batch.barrier.Items() {
		delete(d.pending, sibling.ID())
	}

	d.metrics.recordBarrierResult(res.Err)
	d.observer.OnEvent(ctx, observability.Event{
		Type:      EventBarrierResolved,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "coordinator.driver",
		Data:      map[string]any{"workflow_id": entry.batch.workflowID, "item_count": len(res.Items)},
	})

	entry.batch.resume <- res
}

func (d *driver) handleDone(ctx context.Context, ev workflow.Event) {
	wf, ok := d.workflows[ev.WorkflowID]
	if !ok {
		return
	}
	delete(d.workflows, ev.WorkflowID)
	d.metrics.workflowsCompleted.Add(1)

	d.observer.OnEvent(ctx, observability.Event{
		Type:      EventWorkflowComplete,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "coordinator.driver",
		Data:      map[string]any{"workflow_id": ev.WorkflowID},
	})

	if wf.parentItemID == "" {
		if ev.Err != nil && d.failFast {
			d.interruptWorkers(ctx)
		}
		wf.resultCh <- ev.Err
		close(wf.resultCh)
		return
	}

	parentEntry, ok := d.pending[wf.parentItemID]
	if !ok {
		// The parent SubworkflowItem's own batch already resolved via a
		// sibling's error and was purged; there is nothing left to resume.
		return
	}

	parentItem := parentEntry.batch.barrier.ItemAt(parentEntry.idx)
	parentItem.SetErr(ev.Err)
	parentItem.SetDone(true)
	d.handleCompletion(ctx, parentItem)
}

// interruptWorkers calls the interrupt hook of every registered worker that
// supplied one. It is called at most once per root-workflow failure under
// the fail-fast policy. Workers already mid-item are not preempted, and
// workers registered without a hook are not affected at all. How promptly
// a hooked worker stops is up to that worker: a worker.Pool goroutine
// checks the flag only at the top of its loop, so one already waiting on
// its input channel still takes and processes one more item before it
// exits.
func (d *driver) interruptWorkers(ctx context.Context) {
	for _, w := range d.registry {
		if w.interrupt != nil {
			w.interrupt()
		}
	}
	d.observer.OnEvent(ctx, observability.Event{
		Type:      EventFailFastTriggered,
		Level:     observability.LevelWarning,
		Timestamp: time.Now(),
		Source:    "coordinator.driver",
		Data:      nil,
	})
}
