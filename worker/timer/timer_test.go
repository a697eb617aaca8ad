package timer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbridge-labs/taskflow/item"
	"github.com/northbridge-labs/taskflow/worker/timer"
)

func TestWorker_FiresAfterDuration(t *testing.T) {
	w := timer.New(timer.WithIdlePollInterval(50 * time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	it := item.NewTimer(50 * time.Millisecond)
	start := time.Now()
	require.NoError(t, w.Submit(ctx, it))

	select {
	case done := <-w.Results():
		assert.Same(t, it, done)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
		assert.False(t, done.FiredAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for timer to fire")
	}
}

func TestWorker_FiresInDeadlineOrderRegardlessOfSubmitOrder(t *testing.T) {
	w := timer.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	long := item.NewTimer(150 * time.Millisecond)
	short := item.NewTimer(20 * time.Millisecond)

	// Submit the longer-deadline item first; the shorter one must still
	// fire before it.
	require.NoError(t, w.Submit(ctx, long))
	require.NoError(t, w.Submit(ctx, short))

	select {
	case first := <-w.Results():
		assert.Same(t, short, first)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first timer to fire")
	}

	select {
	case second := <-w.Results():
		assert.Same(t, long, second)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for second timer to fire")
	}
}

func TestWorker_ZeroDurationFiresPromptly(t *testing.T) {
	w := timer.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	it := item.NewTimer(0)
	require.NoError(t, w.Submit(ctx, it))

	select {
	case done := <-w.Results():
		assert.Same(t, it, done)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for zero-duration timer to fire")
	}
}
