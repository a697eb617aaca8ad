// Command taskflowd runs a standard taskflow coordinator and drives a
// small demonstration workflow against it: fetch one or more URLs (as a
// single yield or a joined batch, depending on how many are given),
// optionally sleep, and optionally run a subprocess. It exists to give the
// coordinator package a runnable caller; the workflow body itself is
// exactly the kind of external collaborator the coordinator's own design
// deliberately has no opinion about.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/northbridge-labs/taskflow/config"
	"github.com/northbridge-labs/taskflow/coordinator"
	"github.com/northbridge-labs/taskflow/item"
	"github.com/northbridge-labs/taskflow/observability"
	"github.com/northbridge-labs/taskflow/workflow"
)

func main() {
	var (
		urlsFlag   = flag.String("urls", "https://example.com", "comma-separated URLs to fetch")
		sleep      = flag.Duration("sleep", 0, "duration to sleep via a timer item after fetching (0 disables)")
		subprocess = flag.String("subprocess", "", "command to run after fetching, e.g. \"echo done\" (empty disables)")
		fetchRPS   = flag.Float64("fetch-rps", 0, "fetch worker requests/sec ceiling (0 = unlimited)")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
		timeout    = flag.Duration("timeout", 30*time.Second, "overall workflow timeout")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Default()
	cfg.FetchRPS = *fetchRPS

	observer := observability.Observer(observability.NewSlogObserver(logger))

	c := coordinator.Standard(cfg, coordinator.WithLogger(logger), coordinator.WithObserver(observer))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := c.Start(ctx); err != nil {
		log.Fatalf("taskflowd: failed to start coordinator: %v", err)
	}
	defer func() {
		if err := c.Stop(5 * time.Second); err != nil {
			logger.Error("taskflowd: shutdown did not complete cleanly", "error", err)
		}
	}()

	urls := splitNonEmpty(*urlsFlag, ",")
	if len(urls) == 0 {
		log.Fatalf("taskflowd: -urls produced no URLs to fetch")
	}

	runCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	resultCh, err := c.Submit(demoWorkflow(urls, *sleep, *subprocess))
	if err != nil {
		log.Fatalf("taskflowd: failed to submit workflow: %v", err)
	}

	select {
	case err := <-resultCh:
		if err != nil {
			logger.Error("taskflowd: workflow finished with error", "error", err)
			os.Exit(1)
		}
		logger.Info("taskflowd: workflow finished successfully")
	case <-runCtx.Done():
		logger.Error("taskflowd: timed out waiting for workflow", "error", runCtx.Err())
		os.Exit(1)
	}

	snap := c.Metrics()
	fmt.Printf("workflows: %d started, %d completed; items dispatched: %d; barrier errors: %d\n",
		snap.WorkflowsStarted, snap.WorkflowsCompleted, snap.ItemsDispatched, snap.BarrierErrors)
}

// demoWorkflow fetches every url (a single yield if there is one, a joined
// batch yield otherwise), then optionally sleeps and runs a subprocess.
func demoWorkflow(urls []string, sleep time.Duration, subprocessCmd string) workflow.Func {
	return func(ctx *workflow.Context) error {
		items := make([]item.Item, len(urls))
		for i, u := range urls {
			items[i] = item.NewFetch(u)
		}

		res := ctx.Yield(items...)
		if res.Err != nil {
			return fmt.Errorf("fetch batch failed: %w", res.Err)
		}

		if sleep > 0 {
			if err := ctx.YieldOne(item.NewTimer(sleep)); err != nil {
				return fmt.Errorf("sleep failed: %w", err)
			}
		}

		if subprocessCmd != "" {
			fields := strings.Fields(subprocessCmd)
			if len(fields) == 0 {
				return errors.New("empty subprocess command")
			}
			sp := item.NewSubprocess(fields[0], fields[1:]...)
			if err := ctx.YieldOne(sp); err != nil {
				return fmt.Errorf("subprocess failed: %w", err)
			}
		}

		return nil
	}
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
