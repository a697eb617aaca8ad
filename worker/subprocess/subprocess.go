// Package subprocess implements the Subprocess Worker: it runs external
// commands with an enforced wall-clock timeout, killing and reporting a
// TimeoutError for anything that overruns instead of letting it run
// forever.
package subprocess

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/northbridge-labs/taskflow/item"
	"github.com/northbridge-labs/taskflow/observability"
	"github.com/northbridge-labs/taskflow/worker"
)

const (
	EventProcessStarted observability.EventType = "subprocess.process.started"
	EventProcessTimeout observability.EventType = "subprocess.process.timeout"
)

// TimeoutError reports that a subprocess was killed for exceeding its
// configured timeout. It carries enough context to correlate the kill with
// the originating item in logs.
type TimeoutError struct {
	ItemID  string
	PID     int
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("subprocess %s (pid %d) killed after %s: exceeded timeout", e.ItemID, e.PID, e.Elapsed)
}

// Option configures a Worker at construction time.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	observer    observability.Observer
	defaultTO   time.Duration
	workerCount int
	queueCap    int
}

// WithLogger overrides the worker's logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// WithObserver overrides the worker's observability sink.
func WithObserver(obs observability.Observer) Option {
	return func(cfg *config) { cfg.observer = obs }
}

// WithDefaultTimeout sets the timeout applied to a SubprocessItem that does
// not specify its own. Defaults to 5 minutes.
func WithDefaultTimeout(d time.Duration) Option {
	return func(cfg *config) { cfg.defaultTO = d }
}

// WithWorkerCount sets how many goroutines poll the input queue. Defaults to 2.
func WithWorkerCount(n int) Option {
	return func(cfg *config) { cfg.workerCount = n }
}

// WithQueueCapacity sets the input/output channel buffer size. Defaults to 32.
func WithQueueCapacity(n int) Option {
	return func(cfg *config) { cfg.queueCap = n }
}

// Worker is a pool of goroutines spawning and supervising subprocesses.
type Worker struct {
	pool *worker.Pool[*item.SubprocessItem]
}

// New builds a Subprocess Worker.
func New(opts ...Option) *Worker {
	cfg := config{
		logger:      slog.Default(),
		observer:    observability.NoOpObserver{},
		defaultTO:   5 * time.Minute,
		workerCount: 2,
		queueCap:    32,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &Worker{}
	w.pool = worker.New[*item.SubprocessItem](cfg.workerCount, cfg.queueCap, func(ctx context.Context, it *item.SubprocessItem) {
		process(ctx, it, cfg)
	}, worker.WithLogger(cfg.logger), worker.WithObserver(cfg.observer))

	return w
}

func process(ctx context.Context, it *item.SubprocessItem, cfg config) {
	timeout := it.Timeout
	if timeout <= 0 {
		timeout = cfg.defaultTO
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logFile, err := openLogFile(it)
	if err != nil {
		it.SetErr(err)
		it.SetDone(true)
		return
	}
	defer logFile.Close()

	cmd := exec.CommandContext(runCtx, it.Path, it.Args...)
	if it.Dir != "" {
		cmd.Dir = it.Dir
	}
	if len(it.Env) > 0 {
		cmd.Env = it.Env
	}

	// Stdout and stderr are merged into the same log file, matching the
	// original client's Popen(stderr=STDOUT, stdout=output_file).
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() != nil {
		// Killed for overrunning its timeout, not a natural exit.
		pid := 0
		if cmd.Process != nil {
			pid = cmd.Process.Pid
		}
		cfg.observer.OnEvent(ctx, observability.Event{
			Type:      EventProcessTimeout,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "subprocess.Worker",
			Data:      map[string]any{"item_id": it.ID(), "pid": pid},
		})
		it.SetErr(&TimeoutError{ItemID: it.ID(), PID: pid, Elapsed: elapsed})
		it.SetDone(true)
		return
	}

	if exitErr, ok := runErr.(*exec.ExitError); ok {
		it.ReturnCode = exitErr.ExitCode()
		it.SetDone(true)
		return
	}
	if runErr != nil {
		// Failed to start at all (binary not found, permission denied).
		it.SetErr(runErr)
		it.SetDone(true)
		return
	}

	it.ReturnCode = 0
	it.SetDone(true)
}

// openLogFile opens it.LogPath for the worker to redirect the child's
// merged stdout and stderr into, creating a temporary file and stamping
// its path back onto the item if the caller left LogPath unset.
func openLogFile(it *item.SubprocessItem) (*os.File, error) {
	if it.LogPath == "" {
		f, err := os.CreateTemp("", "taskflow-subprocess-*.log")
		if err != nil {
			return nil, fmt.Errorf("subprocess: creating log file: %w", err)
		}
		it.LogPath = f.Name()
		return f, nil
	}

	f, err := os.Create(it.LogPath)
	if err != nil {
		return nil, fmt.Errorf("subprocess: opening log file %q: %w", it.LogPath, err)
	}
	return f, nil
}

// Start launches the worker's goroutines.
func (w *Worker) Start(ctx context.Context) { w.pool.Start(ctx) }

// Stop cancels and waits for the worker's goroutines to exit.
func (w *Worker) Stop() { w.pool.Stop() }

// Submit enqueues a SubprocessItem for processing.
func (w *Worker) Submit(ctx context.Context, it *item.SubprocessItem) error {
	return w.pool.Submit(ctx, it)
}

// Results returns the channel completed SubprocessItems are published on.
func (w *Worker) Results() <-chan *item.SubprocessItem { return w.pool.Results() }

// Interrupt cooperatively stops the worker's goroutines from picking up
// further work. It does not kill a command that is already running: that
// command runs until it exits, its timeout expires, or the context passed
// to Start is cancelled.
func (w *Worker) Interrupt() { w.pool.Interrupt() }
