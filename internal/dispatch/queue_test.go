package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilid/pkg/requestcontext"
)

func TestQueue_RunsTasksWithRequestValues(t *testing.T) {
	q := NewQueue(4, 2)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = q.Run(ctx)
		close(done)
	}()

	reqCtx, reqCancel := context.WithCancel(requestcontext.WithRequestID(context.Background(), "req-1"))
	got := make(chan string, 1)
	require.NoError(t, q.Enqueue(reqCtx, "echo-request-id", func(ctx context.Context) error {
		got <- requestcontext.RequestID(ctx)
		return ctx.Err()
	}))
	reqCancel()

	select {
	case id := <-got:
		assert.Equal(t, "req-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	cancel()
	<-done
	assert.ErrorIs(t, q.Enqueue(context.Background(), "late", func(context.Context) error { return nil }), ErrQueueClosed)
}

func TestQueue_FullBufferRejects(t *testing.T) {
	q := NewQueue(1, 1)
	noop := func(context.Context) error { return nil }

	require.NoError(t, q.Enqueue(context.Background(), "a", noop))
	assert.ErrorIs(t, q.Enqueue(context.Background(), "b", noop), ErrQueueFull)
}

func TestQueue_TaskTimeout(t *testing.T) {
	q := NewQueue(1, 1, WithTaskTimeout(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	var timedOut atomic.Bool
	finished := make(chan struct{})
	require.NoError(t, q.Enqueue(context.Background(), "slow", func(ctx context.Context) error {
		defer close(finished)
		<-ctx.Done()
		timedOut.Store(ctx.Err() == context.DeadlineExceeded)
		return ctx.Err()
	}))

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not bounded")
	}
	assert.True(t, timedOut.Load())
}

func TestQueue_RecoversFromPanic(t *testing.T) {
	q := NewQueue(2, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	ran := make(chan struct{})
	require.NoError(t, q.Enqueue(context.Background(), "boom", func(context.Context) error { panic("boom") }))
	require.NoError(t, q.Enqueue(context.Background(), "after", func(context.Context) error {
		close(ran)
		return nil
	}))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died with the panicking task")
	}
}
