package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbridge-labs/taskflow/item"
	"github.com/northbridge-labs/taskflow/worker"
)

func TestPool_ProcessesSubmittedItems(t *testing.T) {
	pool := worker.New[*item.TimerItem](2, 4, func(_ context.Context, it *item.TimerItem) {
		it.FiredAt = time.Unix(0, 0)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	a := item.NewTimer(time.Millisecond)
	b := item.NewTimer(time.Millisecond)

	require.NoError(t, pool.Submit(ctx, a))
	require.NoError(t, pool.Submit(ctx, b))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case it := <-pool.Results():
			seen[it.ID()] = true
			assert.False(t, it.FiredAt.IsZero())
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for pool result")
		}
	}

	assert.True(t, seen[a.ID()])
	assert.True(t, seen[b.ID()])
}

func TestPool_PropagatesProcessorError(t *testing.T) {
	boom := errors.New("processing failed")
	pool := worker.New[*item.FetchItem](1, 1, func(_ context.Context, it *item.FetchItem) {
		it.SetErr(boom)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	f := item.NewFetch("https://example.com")
	require.NoError(t, pool.Submit(ctx, f))

	select {
	case it := <-pool.Results():
		assert.Same(t, boom, it.Err())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pool result")
	}
}

func TestPool_Interrupt_SetsInterruptedFlag(t *testing.T) {
	processed := make(chan struct{}, 2)
	pool := worker.New[*item.TimerItem](1, 2, func(_ context.Context, it *item.TimerItem) {
		processed <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	require.NoError(t, pool.Submit(ctx, item.NewTimer(0)))
	<-processed

	pool.Interrupt()
	assert.True(t, pool.Interrupted())
}
