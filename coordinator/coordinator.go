// Package coordinator implements the Workflow Driver / Coordinator: the
// component that runs workflow instances, dispatches the work items they
// yield to registered workers, and joins each yielded batch back into a
// single result through a barrier. Its lifecycle (Start/Stop, a
// non-reentrancy guard, a cancel-then-wait shutdown) follows the teacher's
// hub.Hub.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/northbridge-labs/taskflow/observability"
	"github.com/northbridge-labs/taskflow/workflow"
)

var (
	// ErrAlreadyStarted is returned by Start if the coordinator is already
	// running.
	ErrAlreadyStarted = errors.New("coordinator: already started")
	// ErrNotStarted is returned by Submit if called before Start.
	ErrNotStarted = errors.New("coordinator: not started")
	// ErrShutdownTimeout is returned by Stop if the driver loop and its
	// workers do not quiesce within the given timeout.
	ErrShutdownTimeout = errors.New("coordinator: shutdown timed out")
)

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithLogger overrides the coordinator's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithObserver overrides the coordinator's observability sink. Defaults to
// a NoOpObserver.
func WithObserver(obs observability.Observer) Option {
	return func(c *Coordinator) { c.observer = obs }
}

// WithBufferSize sets the buffer depth of the coordinator's internal
// channels (events, completions, submissions). Defaults to 64.
func WithBufferSize(n int) Option {
	return func(c *Coordinator) { c.bufferSize = n }
}

// WithFailFast sets the coordinator's fail-fast policy: whether a root
// workflow finishing with an unhandled error interrupts every registered
// worker from picking up further items. Defaults to true.
func WithFailFast(enabled bool) Option {
	return func(c *Coordinator) { c.failFast = enabled }
}

// Coordinator is the facade spec.md describes as the external entry
// point: callers Register workers for the kinds they need, Start the
// coordinator, Submit workflow bodies, and Stop it when done.
type Coordinator struct {
	registry   *Registry
	bufferSize int
	failFast   bool
	logger     *slog.Logger
	observer   observability.Observer

	metrics Metrics

	started atomic.Bool
	cancel  context.CancelFunc
	driver  *driver
	wg      sync.WaitGroup
}

// New builds a Coordinator over the given registry. Register every kind
// before Start: Start launches and pumps only the workers registered at
// that moment, and the driver reads the same registry map without
// synchronization while it runs.
func New(reg *Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry:   reg,
		bufferSize: 64,
		failFast:   true,
		logger:     slog.Default(),
		observer:   observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches every registered worker and the driver loop. It returns
// ErrAlreadyStarted if called more than once.
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.driver = newDriver(c.registry.workers, c.bufferSize, c.failFast, &c.metrics, c.logger, c.observer)

	for _, w := range c.registry.workers {
		w.start(runCtx)

		pump := w.pump
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			pump(runCtx, c.driver.completions)
		}()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.driver.run(runCtx)
	}()

	return nil
}

// Submit starts fn as a new top-level workflow instance and returns a
// channel that receives its terminal error exactly once, then closes.
func (c *Coordinator) Submit(fn workflow.Func) (<-chan error, error) {
	if !c.started.Load() {
		return nil, ErrNotStarted
	}

	resultCh := make(chan error, 1)
	select {
	case c.driver.submissions <- submissionRequest{fn: fn, resultCh: resultCh}:
		return resultCh, nil
	case <-time.After(5 * time.Second):
		return nil, errors.New("coordinator: submission queue full")
	}
}

// Metrics returns a point-in-time snapshot of the coordinator's counters.
func (c *Coordinator) Metrics() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// Stop cancels the driver loop and every worker, and waits up to timeout
// for them to exit. It is safe to call even if Start was never called.
func (c *Coordinator) Stop(timeout time.Duration) error {
	if !c.started.Load() {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}

	for _, w := range c.registry.workers {
		w.stop()
	}
	return nil
}
