package subprocess_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbridge-labs/taskflow/item"
	"github.com/northbridge-labs/taskflow/worker/subprocess"
)

func run(t *testing.T, w *subprocess.Worker, it *item.SubprocessItem) *item.SubprocessItem {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	require.NoError(t, w.Submit(ctx, it))

	select {
	case done := <-w.Results():
		return done
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subprocess result")
		return nil
	}
}

func TestWorker_SuccessfulExit(t *testing.T) {
	w := subprocess.New(subprocess.WithWorkerCount(1))
	it := item.NewSubprocess("/bin/sh", "-c", "echo hi; exit 0")
	it.LogPath = filepath.Join(t.TempDir(), "out.log")

	done := run(t, w, it)
	require.NoError(t, done.Err())
	assert.Equal(t, 0, done.ReturnCode)
	assert.Equal(t, it.LogPath, done.LogPath)

	logged, err := os.ReadFile(done.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "hi")
}

func TestWorker_MergesStdoutAndStderrIntoLogFile(t *testing.T) {
	w := subprocess.New(subprocess.WithWorkerCount(1))
	it := item.NewSubprocess("/bin/sh", "-c", "echo out-line; echo err-line 1>&2")
	it.LogPath = filepath.Join(t.TempDir(), "merged.log")

	done := run(t, w, it)
	require.NoError(t, done.Err())

	logged, err := os.ReadFile(done.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "out-line")
	assert.Contains(t, string(logged), "err-line")
}

func TestWorker_AssignsTemporaryLogFileWhenLogPathUnset(t *testing.T) {
	w := subprocess.New(subprocess.WithWorkerCount(1))
	it := item.NewSubprocess("/bin/sh", "-c", "echo hi")

	done := run(t, w, it)
	require.NoError(t, done.Err())
	require.NotEmpty(t, done.LogPath)
	defer os.Remove(done.LogPath)

	logged, err := os.ReadFile(done.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "hi")
}

func TestWorker_NonZeroExitSetsReturnCode(t *testing.T) {
	w := subprocess.New(subprocess.WithWorkerCount(1))
	it := item.NewSubprocess("/bin/sh", "-c", "exit 7")

	done := run(t, w, it)
	require.NoError(t, done.Err())
	assert.Equal(t, 7, done.ReturnCode)
}

func TestWorker_TimeoutKillsAndReportsTimeoutError(t *testing.T) {
	w := subprocess.New(subprocess.WithWorkerCount(1))
	it := item.NewSubprocess("/bin/sh", "-c", "sleep 5")
	it.Timeout = 100 * time.Millisecond

	done := run(t, w, it)
	require.Error(t, done.Err())

	var timeoutErr *subprocess.TimeoutError
	require.True(t, errors.As(done.Err(), &timeoutErr))
	assert.Equal(t, it.ID(), timeoutErr.ItemID)
}

func TestWorker_MissingBinaryIsAnItemError(t *testing.T) {
	w := subprocess.New(subprocess.WithWorkerCount(1))
	it := item.NewSubprocess("/no/such/binary-xyz")

	done := run(t, w, it)
	assert.Error(t, done.Err())
}
