package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbridge-labs/taskflow/item"
	"github.com/northbridge-labs/taskflow/worker/fetch"
)

func TestWorker_SuccessfulFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	w := fetch.New(fetch.WithWorkerCount(1), fetch.WithQueueCapacity(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	it := item.NewFetch(srv.URL)
	require.NoError(t, w.Submit(ctx, it))

	select {
	case done := <-w.Results():
		require.NoError(t, done.Err())
		assert.Equal(t, http.StatusOK, done.StatusCode)
		assert.Equal(t, "hello", string(done.Response))
		assert.Equal(t, "yes", done.ResponseHeader.Get("X-Test"))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch result")
	}
}

func TestWorker_HTTPErrorStatusIsNotAnItemError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("should not be captured"))
	}))
	defer srv.Close()

	w := fetch.New(fetch.WithWorkerCount(1), fetch.WithQueueCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	it := item.NewFetch(srv.URL)
	require.NoError(t, w.Submit(ctx, it))

	select {
	case done := <-w.Results():
		assert.NoError(t, done.Err())
		assert.Equal(t, http.StatusInternalServerError, done.StatusCode)
		assert.Empty(t, done.Response, "non-2xx responses should not capture a body")
		assert.Equal(t, "yes", done.ResponseHeader.Get("X-Test"), "headers are recorded regardless of status")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch result")
	}
}

func TestFetchItem_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	w := fetch.New(fetch.WithWorkerCount(1), fetch.WithQueueCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	it := item.NewFetch(srv.URL)
	require.NoError(t, w.Submit(ctx, it))

	select {
	case done := <-w.Results():
		require.NoError(t, done.Err())
		v, err := done.JSON()
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"ok": true}, v)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch result")
	}
}

func TestFetchItem_JSON_NonJSONContentTypeIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	w := fetch.New(fetch.WithWorkerCount(1), fetch.WithQueueCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	it := item.NewFetch(srv.URL)
	require.NoError(t, w.Submit(ctx, it))

	select {
	case done := <-w.Results():
		require.NoError(t, done.Err())
		_, err := done.JSON()
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch result")
	}
}

func TestWorker_TransportFailureSurfacesAsItemError(t *testing.T) {
	w := fetch.New(fetch.WithWorkerCount(1), fetch.WithQueueCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	// Port 0 on localhost is never listening — a connection refused /
	// transport-level failure, not an HTTP response.
	it := item.NewFetch("http://127.0.0.1:0/unreachable")
	require.NoError(t, w.Submit(ctx, it))

	select {
	case done := <-w.Results():
		assert.Error(t, done.Err())
		assert.Equal(t, 0, done.StatusCode)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch result")
	}
}

func TestWorker_RateLimitDelaysSecondRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := fetch.New(fetch.WithWorkerCount(1), fetch.WithQueueCapacity(2), fetch.WithRateLimit(2, 1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	start := time.Now()
	require.NoError(t, w.Submit(ctx, item.NewFetch(srv.URL)))
	require.NoError(t, w.Submit(ctx, item.NewFetch(srv.URL)))

	for i := 0; i < 2; i++ {
		select {
		case <-w.Results():
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for fetch result")
		}
	}

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 400*time.Millisecond, "second request should be throttled to ~2rps")
}
