// Package config carries the ambient tunables shared by the coordinator
// and its workers. It follows the teacher's merge convention: Default
// returns a fully-populated baseline, and Merge overlays only the
// non-zero fields of a source Config onto the receiver, so a caller can
// hand in a partially-filled override without clobbering the rest of the
// defaults.
package config

import "time"

// Config holds every tunable the standard wiring in cmd/taskflowd and the
// coordinator/worker constructors read from.
type Config struct {
	// PollInterval is the Timer Worker's idle wake interval when it holds
	// no pending deadlines.
	PollInterval time.Duration

	// FetchRPS is the rate of each of the Fetch Worker's FetchWorkers rate
	// limiters; requests draw a limiter round-robin, so aggregate
	// throughput across the pool is capped at FetchRPS × FetchWorkers.
	// A single goroutine is not held to FetchRPS on its own. Zero means
	// unlimited.
	FetchRPS float64
	// FetchBurst is how many requests each of those limiters admits
	// instantaneously before its rate limit applies.
	FetchBurst int
	// FetchWorkers is how many goroutines the Fetch Worker runs.
	FetchWorkers int
	// FetchTimeout is applied to a FetchItem that does not specify its
	// own Timeout.
	FetchTimeout time.Duration

	// SubprocessWorkers is how many goroutines the Subprocess Worker runs.
	SubprocessWorkers int
	// SubprocessTimeout is applied to a SubprocessItem that does not
	// specify its own Timeout.
	SubprocessTimeout time.Duration

	// ChannelBufferSize is the buffer depth used for every worker's
	// input/output channel and the coordinator's internal event channel.
	ChannelBufferSize int

	// ObserverName selects an observer from the observability registry
	// ("noop" or "slog") when the caller does not supply one directly.
	ObserverName string

	// FailFastNil controls whether a root workflow finishing with an
	// unhandled error makes the coordinator interrupt every registered
	// worker that supplied an interrupt hook. Use FailFast to read this
	// with its true default.
	FailFastNil *bool
}

// Default returns a fully-populated baseline Config.
func Default() *Config {
	failFast := true
	return &Config{
		PollInterval:      time.Second,
		FetchRPS:          0,
		FetchBurst:        1,
		FetchWorkers:      4,
		FetchTimeout:      30 * time.Second,
		SubprocessWorkers: 2,
		SubprocessTimeout: 5 * time.Minute,
		ChannelBufferSize: 64,
		ObserverName:      "noop",
		FailFastNil:       &failFast,
	}
}

// FailFast reports whether the coordinator should interrupt its registered
// workers once a root workflow finishes with an unhandled error; an item
// error that the workflow handles does not trigger it. Defaults to
// true when unset, matching spec.md's described error-propagation model.
func (c *Config) FailFast() bool {
	if c.FailFastNil == nil {
		return true
	}
	return *c.FailFastNil
}

// Merge overlays every non-zero field of source onto c, leaving c's
// existing values in place wherever source leaves a field at its zero
// value. A nil source is a no-op.
func (c *Config) Merge(source *Config) {
	if source == nil {
		return
	}

	if source.PollInterval != 0 {
		c.PollInterval = source.PollInterval
	}
	if source.FetchRPS != 0 {
		c.FetchRPS = source.FetchRPS
	}
	if source.FetchBurst != 0 {
		c.FetchBurst = source.FetchBurst
	}
	if source.FetchWorkers != 0 {
		c.FetchWorkers = source.FetchWorkers
	}
	if source.FetchTimeout != 0 {
		c.FetchTimeout = source.FetchTimeout
	}
	if source.SubprocessWorkers != 0 {
		c.SubprocessWorkers = source.SubprocessWorkers
	}
	if source.SubprocessTimeout != 0 {
		c.SubprocessTimeout = source.SubprocessTimeout
	}
	if source.ChannelBufferSize != 0 {
		c.ChannelBufferSize = source.ChannelBufferSize
	}
	if source.ObserverName != "" {
		c.ObserverName = source.ObserverName
	}
	if source.FailFastNil != nil {
		c.FailFastNil = source.FailFastNil
	}
}
