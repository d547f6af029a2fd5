package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalstack/cv-evaluator/constants"
	"github.com/evalstack/cv-evaluator/internal/entity"
	"github.com/evalstack/cv-evaluator/internal/repository"
)

type fakeEvaluator struct {
	mu     sync.Mutex
	calls  int
	delay  time.Duration
	result *entity.EvaluationResult
	err    error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, jobTitle, cvRef, projectRef string) (*entity.EvaluationResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeEvaluator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func okResult() *entity.EvaluationResult {
	return &entity.EvaluationResult{
		CVMatchRate:     0.79,
		CVFeedback:      "good",
		ProjectScore:    3.75,
		ProjectFeedback: "fine",
		OverallSummary:  "hire",
	}
}

func seedJob(t *testing.T, repo repository.JobRepository) (*entity.EvaluationJob, Descriptor) {
	t.Helper()
	job := &entity.EvaluationJob{
		JobTitle:   "Backend Engineer",
		CVRef:      "cv/x.pdf",
		ProjectRef: "project/x.pdf",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	return job, Descriptor{
		JobID:      job.ID,
		JobTitle:   job.JobTitle,
		CVRef:      job.CVRef,
		ProjectRef: job.ProjectRef,
	}
}

func TestProcess_Success(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryJobRepository()
	job, d := seedJob(t, repo)
	w := New(repo, &fakeEvaluator{result: okResult()}, nil)

	require.NoError(t, w.Process(ctx, d))

	got, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobCompleted, got.Status)
	require.NotNil(t, got.CVMatchRate)
	assert.InDelta(t, 0.79, *got.CVMatchRate, 1e-9)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	assert.Nil(t, got.ErrorMessage)
}

func TestProcess_FailureRecordedAndPropagated(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryJobRepository()
	job, d := seedJob(t, repo)
	evalErr := errors.New("cv_scoring: permanent after 1 attempt(s): inference status 401: invalid api key")
	w := New(repo, &fakeEvaluator{err: evalErr}, nil)

	err := w.Process(ctx, d)
	require.ErrorIs(t, err, evalErr, "failure propagates to the queue infrastructure")

	got, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, evalErr.Error(), *got.ErrorMessage, "stored message is returned verbatim")
	assert.Equal(t, 1, got.RetryCount)
	require.NotNil(t, got.FinishedAt)
	assert.Nil(t, got.CVMatchRate)
}

func TestProcess_TerminalJobIsNoOp(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryJobRepository()
	job, d := seedJob(t, repo)
	eval := &fakeEvaluator{result: okResult()}
	w := New(repo, eval, nil)

	require.NoError(t, w.Process(ctx, d))
	require.NoError(t, w.Process(ctx, d), "redelivery of a completed job is a no-op")
	assert.Equal(t, 1, eval.callCount())

	got, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobCompleted, got.Status)
}

func TestProcess_UnknownJob(t *testing.T) {
	repo := repository.NewMemoryJobRepository()
	w := New(repo, &fakeEvaluator{result: okResult()}, nil)

	_, d := seedJob(t, repository.NewMemoryJobRepository())
	err := w.Process(context.Background(), d)
	require.Error(t, err)
}

func TestChannelQueue_ProcessesSequentially(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryJobRepository()
	jobA, dA := seedJob(t, repo)
	jobB, dB := seedJob(t, repo)

	eval := &fakeEvaluator{result: okResult(), delay: 30 * time.Millisecond}
	q := NewChannelQueue(New(repo, eval, nil), discardLogger())
	defer q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue(ctx, dA))
	require.NoError(t, q.Enqueue(ctx, dB))

	require.Eventually(t, func() bool {
		b, err := repo.FindByID(ctx, jobB.ID)
		return err == nil && b.Status == constants.JobCompleted
	}, 2*time.Second, 5*time.Millisecond)

	a, err := repo.FindByID(ctx, jobA.ID)
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, jobB.ID)
	require.NoError(t, err)

	require.NotNil(t, a.FinishedAt)
	require.NotNil(t, b.StartedAt)
	assert.False(t, b.StartedAt.Before(*a.FinishedAt),
		"job A must reach a terminal state before job B starts")
}

func TestChannelQueue_FailureDoesNotStopLoop(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryJobRepository()
	jobA, dA := seedJob(t, repo)
	jobB, dB := seedJob(t, repo)

	eval := &failFirstEvaluator{}
	q := NewChannelQueue(New(repo, eval, nil), discardLogger())
	defer q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue(ctx, dA))
	require.NoError(t, q.Enqueue(ctx, dB))

	require.Eventually(t, func() bool {
		b, err := repo.FindByID(ctx, jobB.ID)
		return err == nil && b.Status == constants.JobCompleted
	}, 2*time.Second, 5*time.Millisecond)

	a, err := repo.FindByID(ctx, jobA.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobFailed, a.Status)
}

// failFirstEvaluator fails its first call and succeeds afterwards. With the
// single-consumer queue this deterministically fails job A and completes job B.
type failFirstEvaluator struct {
	mu    sync.Mutex
	calls int
}

func (f *failFirstEvaluator) Evaluate(ctx context.Context, jobTitle, cvRef, projectRef string) (*entity.EvaluationResult, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()
	if first {
		return nil, errors.New("synthesis: retryable after 4 attempt(s): service unavailable")
	}
	return okResult(), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// deadlineRepo mimics the SQL repositories: any write on a done context
// fails immediately instead of reaching the store.
type deadlineRepo struct {
	repository.JobRepository
}

func (r *deadlineRepo) MarkCompleted(ctx context.Context, id uuid.UUID, res entity.EvaluationResult, finishedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.JobRepository.MarkCompleted(ctx, id, res, finishedAt)
}

func (r *deadlineRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string, finishedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.JobRepository.MarkFailed(ctx, id, message, finishedAt)
}

// sleepEvaluator ignores its context, standing in for a pipeline call that
// returns only after the job deadline has passed.
type sleepEvaluator struct {
	d      time.Duration
	result *entity.EvaluationResult
	err    error
}

func (s *sleepEvaluator) Evaluate(ctx context.Context, jobTitle, cvRef, projectRef string) (*entity.EvaluationResult, error) {
	time.Sleep(s.d)
	return s.result, s.err
}

func TestProcess_ExpiredJobContextStillRecordsFailure(t *testing.T) {
	repo := &deadlineRepo{JobRepository: repository.NewMemoryJobRepository()}
	job, d := seedJob(t, repo)
	w := New(repo, &fakeEvaluator{result: okResult(), delay: time.Second}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.Error(t, w.Process(ctx, d))

	got, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobFailed, got.Status,
		"a job whose deadline fired must still reach a terminal state")
	require.NotNil(t, got.ErrorMessage)
	require.NotNil(t, got.FinishedAt)
}

func TestProcess_ExpiredJobContextStillRecordsSuccess(t *testing.T) {
	repo := &deadlineRepo{JobRepository: repository.NewMemoryJobRepository()}
	job, d := seedJob(t, repo)
	w := New(repo, &sleepEvaluator{d: 60 * time.Millisecond, result: okResult()}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Process(ctx, d))

	got, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobCompleted, got.Status)
	require.NotNil(t, got.CVMatchRate)
}

func TestChannelQueue_EnqueueAfterShutdown(t *testing.T) {
	repo := repository.NewMemoryJobRepository()
	_, d := seedJob(t, repo)
	q := NewChannelQueue(New(repo, &fakeEvaluator{result: okResult()}, nil), discardLogger())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), d)
	require.ErrorIs(t, err, ErrQueueClosed)
}
