package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ChannelQueue is the in-process ingress: a buffered channel drained by a
// single consumer goroutine. Concurrency is exactly one by design, so for
// any two jobs enqueued A before B, A reaches a terminal state before B
// starts processing. Horizontal scaling means running more instances, not
// more goroutines.
type ChannelQueue struct {
	worker     *Worker
	logger     *slog.Logger
	jobTimeout time.Duration

	ch   chan Descriptor
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ChannelQueue)

func WithQueueSize(n int) Option {
	return func(q *ChannelQueue) {
		if n > 0 {
			q.ch = make(chan Descriptor, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(q *ChannelQueue) {
		if d > 0 {
			q.jobTimeout = d
		}
	}
}

func NewChannelQueue(w *Worker, logger *slog.Logger, opts ...Option) *ChannelQueue {
	q := &ChannelQueue{
		worker:     w,
		logger:     logger,
		jobTimeout: 10 * time.Minute,
		ch:         make(chan Descriptor, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ChannelQueue) start() {
	q.once.Do(func() {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.logger.Info("worker started")

			for d := range q.ch {
				ctx, cancel := context.WithTimeout(context.Background(), q.jobTimeout)
				err := q.worker.Process(ctx, d)
				cancel()

				if err != nil {
					q.logger.Error("processing failed", "job_id", d.JobID, "error", err)
				} else {
					q.logger.Info("processed job", "job_id", d.JobID)
				}
			}

			q.logger.Info("worker stopped")
		}()
	})
}

func (q *ChannelQueue) Enqueue(_ context.Context, d Descriptor) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", d.JobID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- d:
		q.logger.Info("queued job", "job_id", d.JobID, "job_title", d.JobTitle)
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", d.JobID)
		q.ch <- d
	}
	return nil
}

func (q *ChannelQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
