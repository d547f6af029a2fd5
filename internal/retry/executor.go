package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Error is the terminal failure surfaced by Do after a permanent error or
// retry exhaustion. It tags the underlying error with the call site, the
// number of attempts made, and the final classification.
type Error struct {
	Op       string
	Attempts int
	Class    Class
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s after %d attempt(s): %v", e.Op, e.Class, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Do runs op under p, retrying transient failures with exponential backoff.
// Each attempt gets its own deadline of p.Timeout; exceeding it cancels that
// attempt only and counts as a retryable-by-default timeout failure. Do
// returns as soon as op succeeds, and aborts immediately on a failure the
// classifier deems Permanent or once the attempt budget is spent. The
// backoff wait is context-aware, so cancelling ctx interrupts it.
func Do[T any](ctx context.Context, logger *slog.Logger, op string, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		zero    T
		lastErr error
	)
	total := p.MaxRetries + 1

	for attempt := 0; attempt < total; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		v, err := fn(attemptCtx)
		cancel()
		if err == nil {
			if attempt > 0 {
				logger.Info("retry.recovered", "op", op, "attempt", attempt+1)
			}
			return v, nil
		}
		lastErr = err

		class := Classify(err)
		if class == Permanent {
			logger.Warn("retry.permanent_failure", "op", op, "attempt", attempt+1, "error", err)
			return zero, &Error{Op: op, Attempts: attempt + 1, Class: Permanent, Err: err}
		}
		if attempt == total-1 {
			break
		}
		if err := ctx.Err(); err != nil {
			return zero, &Error{Op: op, Attempts: attempt + 1, Class: Retryable, Err: err}
		}

		delay := Delay(attempt, p)
		logger.Warn("retry.transient_failure",
			"op", op,
			"attempt", attempt+1,
			"max_attempts", total,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return zero, &Error{Op: op, Attempts: attempt + 1, Class: Retryable, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}

	logger.Error("retry.exhausted", "op", op, "attempts", total, "error", lastErr)
	return zero, &Error{Op: op, Attempts: total, Class: Retryable, Err: lastErr}
}
