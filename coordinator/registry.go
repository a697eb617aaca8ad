package coordinator

import (
	"context"
	"fmt"

	"github.com/northbridge-labs/taskflow/item"
)

// registeredWorker adapts a concretely-typed worker (fetch.Worker,
// subprocess.Worker, timer.Worker, or any caller-supplied custom worker)
// to the coordinator's item.Item-shaped dispatch. The coordinator never
// needs to know the worker's own item subtype — only how to start it,
// submit an item.Item to it, stop it, and pump its completions onto the
// coordinator's shared completions channel.
type registeredWorker struct {
	kind      item.Kind
	start     func(context.Context)
	stop      func()
	submit    func(context.Context, item.Item) error
	pump      func(context.Context, chan<- item.Item)
	interrupt func()
}

// Registry is the Registry & Factory module: a lookup from item.Kind to
// the worker that handles it. Register before calling Coordinator.Start —
// the registry is read without synchronization once the driver loop is
// running.
type Registry struct {
	workers map[item.Kind]registeredWorker
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{workers: make(map[item.Kind]registeredWorker)}
}

// Register associates kind with a worker. start/stop control the worker's
// goroutines; submit routes a dispatched item.Item to it (returning an
// error if it is not the concrete type this worker expects); results
// yields the channel of completed items for the coordinator to pump from.
// interrupt is optional: when given, the coordinator's fail-fast policy
// calls it to stop this worker from picking up further items without
// waiting for it to drain (see config.Config.FailFast).
func Register[T item.Item](reg *Registry, kind item.Kind, start func(context.Context), stop func(), submit func(context.Context, T) error, results func() <-chan T, interrupt ...func()) {
	var interruptFn func()
	if len(interrupt) > 0 {
		interruptFn = interrupt[0]
	}
	reg.workers[kind] = registeredWorker{
		kind:      kind,
		start:     start,
		stop:      stop,
		interrupt: interruptFn,
		submit: func(ctx context.Context, it item.Item) error {
			typed, ok := it.(T)
			if !ok {
				return fmt.Errorf("coordinator: worker for kind %q expected %T, got %T", kind, *new(T), it)
			}
			return submit(ctx, typed)
		},
		pump: func(ctx context.Context, out chan<- item.Item) {
			ch := results()
			for {
				select {
				case <-ctx.Done():
					return
				case it, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- it:
					case <-ctx.Done():
						return
					}
				}
			}
		},
	}
}
