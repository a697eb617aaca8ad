// Package timer implements the Timer Worker: a single goroutine holding a
// container/heap min-heap of pending deadlines, waking exactly when the
// next one is due instead of polling on a fixed tick. This mirrors the
// eviction-queue shape in TheEntropyCollective-noisefs's storage cache
// (pkg/storage/cache/eviction.go), which reaches for the same stdlib heap
// to keep an ordered-by-deadline structure without a third-party priority
// queue.
package timer

import (
	"container/heap"
	"context"
	"log/slog"
	"time"

	"github.com/northbridge-labs/taskflow/item"
	"github.com/northbridge-labs/taskflow/observability"
)

const (
	EventTimerArmed observability.EventType = "timer.item.armed"
	EventTimerFired observability.EventType = "timer.item.fired"
)

// Option configures a Worker at construction time.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	observer observability.Observer
	idlePoll time.Duration
	queueCap int
}

// WithLogger overrides the worker's logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// WithObserver overrides the worker's observability sink.
func WithObserver(obs observability.Observer) Option {
	return func(cfg *config) { cfg.observer = obs }
}

// WithIdlePollInterval sets how long the worker sleeps when it holds no
// pending timers. Defaults to 1s; irrelevant whenever at least one timer
// is pending, since the worker wakes exactly at that timer's deadline.
func WithIdlePollInterval(d time.Duration) Option {
	return func(cfg *config) { cfg.idlePoll = d }
}

// WithQueueCapacity sets the submit/output channel buffer size. Defaults to 64.
func WithQueueCapacity(n int) Option {
	return func(cfg *config) { cfg.queueCap = n }
}

// Worker fires TimerItems after their configured Duration has elapsed.
type Worker struct {
	cfg    config
	submit chan *item.TimerItem
	out    chan *item.TimerItem
}

// New builds a Timer Worker.
func New(opts ...Option) *Worker {
	cfg := config{
		logger:   slog.Default(),
		observer: observability.NoOpObserver{},
		idlePoll: time.Second,
		queueCap: 64,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		cfg:    cfg,
		submit: make(chan *item.TimerItem, cfg.queueCap),
		out:    make(chan *item.TimerItem, cfg.queueCap),
	}
}

// Start launches the worker's single driving goroutine.
func (w *Worker) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Submit enqueues it to fire after its Duration elapses, measured from the
// moment this call is accepted.
func (w *Worker) Submit(ctx context.Context, it *item.TimerItem) error {
	select {
	case w.submit <- it:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the channel fired TimerItems are published on.
func (w *Worker) Results() <-chan *item.TimerItem { return w.out }

func (w *Worker) loop(ctx context.Context) {
	h := &deadlineHeap{}
	heap.Init(h)

	wake := time.NewTimer(w.cfg.idlePoll)
	defer wake.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case it := <-w.submit:
			heap.Push(h, &pending{deadline: time.Now().Add(it.Duration), item: it})
			w.cfg.observer.OnEvent(ctx, observability.Event{
				Type:      EventTimerArmed,
				Level:     observability.LevelVerbose,
				Timestamp: time.Now(),
				Source:    "timer.Worker",
				Data:      map[string]any{"item_id": it.ID(), "duration": it.Duration.String()},
			})
			rearm(wake, h, w.cfg.idlePoll)

		case now := <-wake.C:
			for h.Len() > 0 && !(*h)[0].deadline.After(now) {
				p := heap.Pop(h).(*pending)
				p.item.FiredAt = now
				p.item.SetDone(true)

				w.cfg.observer.OnEvent(ctx, observability.Event{
					Type:      EventTimerFired,
					Level:     observability.LevelVerbose,
					Timestamp: now,
					Source:    "timer.Worker",
					Data:      map[string]any{"item_id": p.item.ID()},
				})

				select {
				case w.out <- p.item:
				case <-ctx.Done():
					return
				}
			}
			rearm(wake, h, w.cfg.idlePoll)
		}
	}
}

// rearm resets wake to fire exactly at the heap's next deadline, or after
// idlePoll if the heap is empty.
func rearm(wake *time.Timer, h *deadlineHeap, idlePoll time.Duration) {
	if !wake.Stop() {
		select {
		case <-wake.C:
		default:
		}
	}

	if h.Len() == 0 {
		wake.Reset(idlePoll)
		return
	}

	d := time.Until((*h)[0].deadline)
	if d < 0 {
		d = 0
	}
	wake.Reset(d)
}
