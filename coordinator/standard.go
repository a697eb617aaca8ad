package coordinator

import (
	"github.com/northbridge-labs/taskflow/config"
	"github.com/northbridge-labs/taskflow/item"
	"github.com/northbridge-labs/taskflow/observability"
	"github.com/northbridge-labs/taskflow/worker/fetch"
	"github.com/northbridge-labs/taskflow/worker/subprocess"
	"github.com/northbridge-labs/taskflow/worker/timer"
)

// Standard builds a Coordinator wired with the three built-in worker
// kinds — Fetch, Subprocess, and Timer — configured from cfg. This is the
// wiring cmd/taskflowd uses; callers that need a custom or additional
// worker kind should build a Registry themselves with coordinator.Register
// and pass it to coordinator.New directly instead.
func Standard(cfg *config.Config, opts ...Option) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}

	reg := NewRegistry()

	// cfg.ObserverName selects the default observer from the
	// observability registry; an explicit WithObserver in opts still
	// wins, since it is applied after this one.
	defaultOpts := []Option{WithBufferSize(cfg.ChannelBufferSize), WithFailFast(cfg.FailFast())}
	if obs, err := observability.GetObserver(cfg.ObserverName); err == nil {
		defaultOpts = append(defaultOpts, WithObserver(obs))
	}

	c := New(reg, append(defaultOpts, opts...)...)
	logger := c.logger
	observer := c.observer

	fetchOpts := []fetch.Option{
		fetch.WithWorkerCount(cfg.FetchWorkers),
		fetch.WithQueueCapacity(cfg.ChannelBufferSize),
		fetch.WithDefaultTimeout(cfg.FetchTimeout),
		fetch.WithLogger(logger),
		fetch.WithObserver(observer),
	}
	if cfg.FetchRPS > 0 {
		fetchOpts = append(fetchOpts, fetch.WithRateLimit(cfg.FetchRPS, cfg.FetchBurst))
	}
	fw := fetch.New(fetchOpts...)
	Register[*item.FetchItem](reg, item.KindFetch, fw.Start, fw.Stop, fw.Submit, fw.Results, fw.Interrupt)

	sw := subprocess.New(
		subprocess.WithWorkerCount(cfg.SubprocessWorkers),
		subprocess.WithQueueCapacity(cfg.ChannelBufferSize),
		subprocess.WithDefaultTimeout(cfg.SubprocessTimeout),
		subprocess.WithLogger(logger),
		subprocess.WithObserver(observer),
	)
	Register[*item.SubprocessItem](reg, item.KindSubprocess, sw.Start, sw.Stop, sw.Submit, sw.Results, sw.Interrupt)

	tw := timer.New(
		timer.WithIdlePollInterval(cfg.PollInterval),
		timer.WithQueueCapacity(cfg.ChannelBufferSize),
		timer.WithLogger(logger),
		timer.WithObserver(observer),
	)
	// The Timer Worker has no Stop method: its goroutine exits when the
	// context passed to Start is cancelled, so its stop hook does nothing.
	Register[*item.TimerItem](reg, item.KindTimer, tw.Start, func() {}, tw.Submit, tw.Results)

	return c
}
