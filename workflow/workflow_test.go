package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbridge-labs/taskflow/barrier"
	"github.com/northbridge-labs/taskflow/item"
	"github.com/northbridge-labs/taskflow/workflow"
)

// drive acts as a minimal stand-in for the coordinator's driver loop: it
// reads the next event, and if it's a yield, immediately resumes with the
// given result. This isolates the workflow package's suspend/resume
// contract from the coordinator's dispatch logic.
func drive(t *testing.T, events <-chan workflow.Event, answer barrier.Result) workflow.Event {
	t.Helper()
	select {
	case ev := <-events:
		if ev.Yield != nil {
			ev.Resume <- answer
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for workflow event")
		return workflow.Event{}
	}
}

func TestStart_SimpleCompletion(t *testing.T) {
	events := make(chan workflow.Event)

	workflow.Start(context.Background(), events, func(ctx *workflow.Context) error {
		return nil
	})

	ev := <-events
	assert.True(t, ev.Done)
	assert.NoError(t, ev.Err)
}

func TestContext_Yield_ReturnsJoinedResult(t *testing.T) {
	events := make(chan workflow.Event)
	var gotErr error

	fetch := item.NewFetch("https://example.com")
	workflow.Start(context.Background(), events, func(ctx *workflow.Context) error {
		res := ctx.Yield(fetch)
		gotErr = res.Err
		return res.Err
	})

	yielded := drive(t, events, barrier.Result{Items: []item.Item{fetch}, Err: nil})
	require.NotNil(t, yielded.Yield)
	require.Len(t, yielded.Yield.Items, 1)
	assert.Same(t, fetch, yielded.Yield.Items[0])

	done := <-events
	assert.True(t, done.Done)
	assert.NoError(t, done.Err)
	assert.NoError(t, gotErr)
}

func TestContext_Yield_PropagatesBarrierError(t *testing.T) {
	events := make(chan workflow.Event)
	boom := errors.New("fetch failed")

	fetch := item.NewFetch("https://example.com")
	workflow.Start(context.Background(), events, func(ctx *workflow.Context) error {
		return ctx.YieldOne(fetch)
	})

	drive(t, events, barrier.Result{Items: []item.Item{fetch}, Err: boom})

	done := <-events
	assert.True(t, done.Done)
	assert.Same(t, boom, done.Err)
}

func TestContext_ID_StableAcrossYields(t *testing.T) {
	events := make(chan workflow.Event)
	var firstID, secondID string

	fetch := item.NewFetch("https://example.com")
	workflow.Start(context.Background(), events, func(ctx *workflow.Context) error {
		firstID = ctx.ID()
		ctx.Yield(fetch)
		secondID = ctx.ID()
		return nil
	})

	ev := drive(t, events, barrier.Result{Items: []item.Item{fetch}})
	assert.Equal(t, ev.WorkflowID, firstID)

	<-events
	assert.Equal(t, firstID, secondID)
}
