package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	r "github.com/redis/go-redis/v9"
)

// RedisQueue is the cross-process ingress variant: submissions go through a
// Redis list so the API and the worker can run as separate processes. The
// consumer side is still exactly one blocking pop loop per instance, and the
// list delivers each descriptor once to the popping worker; all retrying
// stays with the call executor, never the queue.
type RedisQueue struct {
	rdb        *r.Client
	key        string
	worker     *Worker
	logger     *slog.Logger
	popTimeout time.Duration
	jobTimeout time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisQueue(rdb *r.Client, key string, w *Worker, logger *slog.Logger, popTimeout, jobTimeout time.Duration) *RedisQueue {
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}
	return &RedisQueue{
		rdb:        rdb,
		key:        key,
		worker:     w,
		logger:     logger,
		popTimeout: popTimeout,
		jobTimeout: jobTimeout,
		done:       make(chan struct{}),
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, d Descriptor) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		q.logger.Error("redis enqueue failed", "job_id", d.JobID, "error", err)
		return err
	}
	q.logger.Info("queued job", "job_id", d.JobID, "job_title", d.JobTitle)
	return nil
}

// Start launches the consumer loop. Call Shutdown to stop it.
func (q *RedisQueue) Start() {
	var ctx context.Context
	ctx, q.cancel = context.WithCancel(context.Background())
	go q.run(ctx)
}

func (q *RedisQueue) run(ctx context.Context) {
	defer close(q.done)
	q.logger.Info("worker started", "queue", q.key)

	for {
		res, err := q.rdb.BRPop(ctx, q.popTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, r.Nil) {
				continue
			}
			if ctx.Err() != nil {
				q.logger.Info("worker stopped", "queue", q.key)
				return
			}
			q.logger.Error("redis dequeue failed", "error", err)
			// Transient broker trouble must not kill the loop.
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(res) != 2 {
			continue
		}

		var d Descriptor
		if err := json.Unmarshal([]byte(res[1]), &d); err != nil {
			q.logger.Error("discarding malformed descriptor", "error", err)
			continue
		}

		jobCtx, cancel := context.WithTimeout(context.Background(), q.jobTimeout)
		err = q.worker.Process(jobCtx, d)
		cancel()

		if err != nil {
			q.logger.Error("processing failed", "job_id", d.JobID, "error", err)
		} else {
			q.logger.Info("processed job", "job_id", d.JobID)
		}
	}
}

func (q *RedisQueue) Shutdown(ctx context.Context) {
	if q.cancel == nil {
		return
	}
	q.cancel()
	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-q.done:
		q.logger.Info("worker drained, shutdown complete")
	}
}
