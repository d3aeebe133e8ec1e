package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mobilid/internal/dispatch/metrics"
	"mobilid/pkg/requestcontext"
)

// ErrQueueFull is returned when the background buffer has no room. The
// work is dropped; the next trigger or the sweep will redo it.
var ErrQueueFull = errors.New("dispatch: task queue full")

// ErrQueueClosed is returned after Run has returned.
var ErrQueueClosed = errors.New("dispatch: task queue closed")

type task struct {
	name string
	ctx  context.Context
	run  func(ctx context.Context) error
}

// Queue runs handler-scheduled work on a fixed pool of workers so requests
// can answer before the refresh finishes.
type Queue struct {
	tasks   chan task
	workers int
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
}

type QueueOption func(*Queue)

func WithQueueLogger(l *slog.Logger) QueueOption {
	return func(q *Queue) { q.logger = l }
}

func WithQueueMetrics(m *metrics.Metrics) QueueOption {
	return func(q *Queue) { q.metrics = m }
}

// WithTaskTimeout bounds each task. Defaults to one minute.
func WithTaskTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewQueue(size, workers int, opts ...QueueOption) *Queue {
	if size <= 0 {
		size = 256
	}
	if workers <= 0 {
		workers = 1
	}
	q := &Queue{
		tasks:   make(chan task, size),
		workers: workers,
		timeout: time.Minute,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue schedules fn. Request-scoped values in ctx (request id, trigger)
// travel with the task but its cancellation does not.
func (q *Queue) Enqueue(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task{name: name, ctx: requestcontext.Detach(ctx), run: fn}:
		q.metrics.SetQueueDepth(len(q.tasks))
		return nil
	default:
		q.metrics.IncrementQueueDropped()
		return ErrQueueFull
	}
}

// Run starts the workers and blocks until ctx is done and every worker has
// exited. In-flight tasks see ctx's cancellation; tasks still buffered at
// that point run with a cancelled context and fail fast.
func (q *Queue) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for range q.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range q.tasks {
				q.execute(ctx, t)
			}
		}()
	}

	<-ctx.Done()
	q.mu.Lock()
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	wg.Wait()
	return nil
}

func (q *Queue) execute(lifecycle context.Context, t task) {
	q.metrics.SetQueueDepth(len(q.tasks))

	ctx, cancel := context.WithTimeout(t.ctx, q.timeout)
	defer cancel()
	stop := context.AfterFunc(lifecycle, cancel)
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			q.logger.ErrorContext(ctx, "background task panicked", "task", t.name, "panic", r)
		}
	}()
	if err := t.run(ctx); err != nil {
		q.logger.WarnContext(ctx, "background task failed",
			"task", t.name,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// Background binds a Dispatcher to a Queue for work that handlers trigger
// but do not wait for.
type Background struct {
	d *Dispatcher
	q *Queue
}

func (d *Dispatcher) Background(q *Queue) *Background {
	return &Background{d: d, q: q}
}

// EnqueueRefresh schedules RefreshAndNotify for serial.
func (b *Background) EnqueueRefresh(ctx context.Context, serial string) error {
	return b.q.Enqueue(ctx, "refresh:"+serial, func(ctx context.Context) error {
		_, err := b.d.RefreshAndNotify(ctx, serial)
		return err
	})
}

// EnqueueRotate schedules RotateAndNotify for serial.
func (b *Background) EnqueueRotate(ctx context.Context, serial string) error {
	return b.q.Enqueue(ctx, "rotate:"+serial, func(ctx context.Context) error {
		_, err := b.d.RotateAndNotify(ctx, serial)
		return err
	})
}
