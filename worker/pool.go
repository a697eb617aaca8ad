// Package worker implements the generic worker pool shape shared by the
// Fetch, Subprocess, and Timer workers: a fixed number of goroutines pull
// items of a single kind from an input channel, run a kind-specific
// Processor over each, and push the completed item onto an output channel.
// This generalizes the teacher's ProcessParallel worker-pool fan-out
// (orchestrate/workflows/parallel.go) from a one-shot batch call into a
// long-lived pool a coordinator can submit work to for the process's
// lifetime.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/northbridge-labs/taskflow/item"
	"github.com/northbridge-labs/taskflow/observability"
)

// Processor completes a single item of type T in place — setting its
// result fields and, on failure, its error via SetErr — and returns once
// that item is ready to be reported back to the coordinator.
type Processor[T item.Item] func(ctx context.Context, it T)

// Option configures a Pool at construction time.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	observer observability.Observer
}

// WithLogger overrides the pool's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver overrides the pool's observability sink. Defaults to a
// NoOpObserver.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// Pool runs a fixed number of goroutines, each pulling items of type T from
// In and running Processor over them, pushing the finished item onto Out.
// It is safe to Submit from multiple goroutines; Start and Stop are not
// meant to be called concurrently with each other.
type Pool[T item.Item] struct {
	process Processor[T]
	workers int

	in  chan T
	out chan T

	interrupted atomic.Bool
	logger      *slog.Logger
	observer    observability.Observer

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds a Pool with the given number of worker goroutines and a
// bounded input queue of the given capacity.
func New[T item.Item](workers, queueCapacity int, process Processor[T], opts ...Option) *Pool[T] {
	if workers < 1 {
		workers = 1
	}

	o := options{
		logger:   slog.Default(),
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Pool[T]{
		process:  process,
		workers:  workers,
		in:       make(chan T, queueCapacity),
		out:      make(chan T, queueCapacity),
		logger:   o.logger,
		observer: o.observer,
	}
}

// Start launches the pool's worker goroutines. It returns immediately;
// workers run until ctx is cancelled or Stop is called.
func (p *Pool[T]) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
}

func (p *Pool[T]) loop(ctx context.Context, workerIdx int) {
	defer p.wg.Done()

	for {
		if p.interrupted.Load() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case it, ok := <-p.in:
			if !ok {
				return
			}
			p.observer.OnEvent(ctx, observability.Event{
				Type:      EventItemStarted,
				Level:     observability.LevelVerbose,
				Timestamp: time.Now(),
				Source:    "worker.Pool",
				Data:      map[string]any{"item_id": it.ID(), "worker": workerIdx},
			})

			p.process(ctx, it)

			select {
			case p.out <- it:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Submit enqueues it for processing. It blocks if the input queue is full
// and ctx has no deadline; callers that need backpressure visibility
// should size the queue or use a context with a deadline.
func (p *Pool[T]) Submit(ctx context.Context, it T) error {
	select {
	case p.in <- it:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the channel completed items are published on.
func (p *Pool[T]) Results() <-chan T {
	return p.out
}

// Interrupt sets the pool's cooperative-cancellation flag: worker loops
// check it at the top of every iteration and exit there without waiting
// for context cancellation. A loop already blocked waiting for input when
// the flag is set still takes and processes the next item before it
// exits, and a Processor call already running is not affected by the flag.
func (p *Pool[T]) Interrupt() {
	p.interrupted.Store(true)
}

// Interrupted reports whether Interrupt has been called.
func (p *Pool[T]) Interrupted() bool {
	return p.interrupted.Load()
}

// Stop cancels all worker goroutines and waits for them to exit.
func (p *Pool[T]) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
