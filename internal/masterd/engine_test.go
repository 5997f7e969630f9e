package masterd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replogio/replog/internal/replog"
)

func newFakeSecondary(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func alwaysOK(counter *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(counter, 1)
		w.WriteHeader(http.StatusOK)
	}
}

func testEngine(t *testing.T, secondaryURLs []string) *Engine {
	t.Helper()
	cfg := Config{RetryBaseDelay: 0.01, RetryMaxDelay: 0.02, SecondariesRaw: join(secondaryURLs)}
	e := NewEngine(cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	for _, w := range e.Workers() {
		go w.Run(ctx)
	}
	return e
}

func join(urls []string) string {
	out := ""
	for i, u := range urls {
		if i > 0 {
			out += ","
		}
		out += u
	}
	return out
}

func TestEngine_ClampW(t *testing.T) {
	e := NewEngine(Config{SecondariesRaw: "http://a,http://b"}, nil)
	require.Equal(t, 3, e.N())

	w, clamped := e.ClampW(nil)
	assert.Equal(t, 3, w)
	assert.False(t, clamped)

	req := 99
	w, clamped = e.ClampW(&req)
	assert.Equal(t, 3, w)
	assert.True(t, clamped)

	req = 0
	w, clamped = e.ClampW(&req)
	assert.Equal(t, 1, w)
	assert.False(t, clamped)
}

func TestEngine_WriteFullQuorum(t *testing.T) {
	var hits1, hits2 int32
	s1 := newFakeSecondary(t, alwaysOK(&hits1))
	s2 := newFakeSecondary(t, alwaysOK(&hits2))
	e := testEngine(t, []string{s1.URL, s2.URL})

	msg, acks := e.Write(context.Background(), "A", 3, time.Second)
	assert.Equal(t, uint64(1), msg.ID)
	assert.Equal(t, 3, acks)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits1))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits2))
}

func TestEngine_WriteRelaxedConcernReturnsEarly(t *testing.T) {
	var hits int32
	s1 := newFakeSecondary(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	})
	e := testEngine(t, []string{s1.URL})

	start := time.Now()
	_, acks := e.Write(context.Background(), "B", 1, time.Second)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 1, acks)
}

func TestEngine_WriteTimesOutWithPartialAcks(t *testing.T) {
	var hits int32
	slow := newFakeSecondary(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	})
	e := testEngine(t, []string{slow.URL})

	_, acks := e.Write(context.Background(), "C", 2, 30*time.Millisecond)
	assert.Equal(t, 1, acks)
}

func TestEngine_EnqueuePendingUnknownURL(t *testing.T) {
	e := NewEngine(Config{SecondariesRaw: "http://a"}, nil)
	assert.False(t, e.EnqueuePending("http://nonexistent"))
}

func TestEngine_RunWorkersReturnsNilOnNormalShutdown(t *testing.T) {
	var hits1, hits2 int32
	s1 := newFakeSecondary(t, alwaysOK(&hits1))
	s2 := newFakeSecondary(t, alwaysOK(&hits2))

	e := NewEngine(Config{RetryBaseDelay: 0.01, RetryMaxDelay: 0.02, SecondariesRaw: join([]string{s1.URL, s2.URL})}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.RunWorkers(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunWorkers did not return after ctx cancellation")
	}
}

func TestEngine_RunWorkersAggregatesConcurrentFailures(t *testing.T) {
	s1 := newFakeSecondary(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	s2 := newFakeSecondary(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	e := NewEngine(Config{RetryBaseDelay: 0.01, RetryMaxDelay: 0.02, SecondariesRaw: join([]string{s1.URL, s2.URL})}, nil)

	// Force both workers to panic on their first successful delivery by
	// handing each a closed ack-sink: sending on a closed channel panics
	// even inside a non-blocking select, so RunWorkers must observe and
	// aggregate both recovered panics.
	for _, w := range e.Workers() {
		sink := make(chan *replog.AckFuture)
		close(sink)
		w.Enqueue(replog.Message{ID: 1, Text: "x"}, sink)
	}

	done := make(chan error, 1)
	ctx := context.Background()
	go func() { done <- e.RunWorkers(ctx) }()

	select {
	case err := <-done:
		require.Error(t, err)
		merr, ok := err.(*multierror.Error)
		require.True(t, ok, "expected a *multierror.Error, got %T", err)
		assert.Len(t, merr.Errors, 2)
	case <-time.After(time.Second):
		t.Fatal("RunWorkers did not return after both workers panicked")
	}
}

func TestEngine_EnqueuePendingReplaysLog(t *testing.T) {
	var hits int32
	s1 := newFakeSecondary(t, alwaysOK(&hits))
	e := testEngine(t, []string{s1.URL})

	e.Write(context.Background(), "A", 1, time.Second)
	e.Write(context.Background(), "B", 1, time.Second)

	require.True(t, e.EnqueuePending(s1.URL))
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&hits) >= 4
	}, time.Second, 5*time.Millisecond)
}
