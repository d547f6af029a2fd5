package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evalstack/cv-evaluator/internal/common"
	"github.com/evalstack/cv-evaluator/internal/entity"
	"github.com/evalstack/cv-evaluator/internal/metrics"
	"github.com/evalstack/cv-evaluator/internal/repository"
)

// Evaluator is the worker's orchestration dependency; satisfied by
// *pipeline.Orchestrator.
type Evaluator interface {
	Evaluate(ctx context.Context, jobTitle, cvRef, projectRef string) (*entity.EvaluationResult, error)
}

// recordTimeout bounds the detached outcome writes after the job context is gone.
const recordTimeout = 10 * time.Second

// Worker executes one evaluation job end to end: state transitions, pipeline
// run, outcome recording. It is the single writer of job rows after creation.
type Worker struct {
	repo repository.JobRepository
	eval Evaluator
	log  *slog.Logger
}

func New(repo repository.JobRepository, eval Evaluator, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{repo: repo, eval: eval, log: log}
}

// Process handles one dequeued descriptor. A terminal or already-running job
// is skipped (redelivery safety). A pipeline failure is recorded on the job
// and returned so the surrounding queue can observe it; it is never fatal to
// the caller's loop.
func (w *Worker) Process(ctx context.Context, d Descriptor) error {
	start := time.Now()

	job, err := w.repo.FindByID(ctx, d.JobID)
	if err != nil {
		w.log.Error("worker.job_lookup_failed", "job_id", d.JobID, "err", err)
		return fmt.Errorf("load job %s: %w", d.JobID, err)
	}
	if job.Status.Terminal() {
		w.log.Info("worker.redelivery_skipped", "job_id", d.JobID, "status", job.Status)
		return nil
	}

	if err := w.repo.MarkProcessing(ctx, d.JobID, time.Now().UTC()); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// Lost the transition race with another delivery of the same job.
			w.log.Warn("worker.transition_conflict", "job_id", d.JobID)
			return nil
		}
		return fmt.Errorf("mark processing %s: %w", d.JobID, err)
	}

	res, evalErr := w.eval.Evaluate(ctx, d.JobTitle, d.CVRef, d.ProjectRef)

	// The job context may already be expired here (a pipeline timeout is a
	// normal failure), so outcome writes run on a detached context: the job
	// must still reach a terminal state.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if evalErr != nil {
		if err := w.repo.MarkFailed(recordCtx, d.JobID, evalErr.Error(), time.Now().UTC()); err != nil {
			w.log.Error("worker.record_failure_failed", "job_id", d.JobID, "err", err)
		}
		metrics.JobsProcessed.WithLabelValues("failed").Inc()
		metrics.JobDuration.Observe(time.Since(start).Seconds())
		w.log.Error("worker.job_failed", "job_id", d.JobID, "err", evalErr,
			"elapsed_ms", time.Since(start).Milliseconds())
		return evalErr
	}

	if err := w.repo.MarkCompleted(recordCtx, d.JobID, *res, time.Now().UTC()); err != nil {
		w.log.Error("worker.record_result_failed", "job_id", d.JobID, "err", err)
		return fmt.Errorf("mark completed %s: %w", d.JobID, err)
	}
	metrics.JobsProcessed.WithLabelValues("completed").Inc()
	metrics.JobDuration.Observe(time.Since(start).Seconds())
	w.log.Info("worker.job_completed", "job_id", d.JobID,
		"cv_match_rate", res.CVMatchRate,
		"project_score", res.ProjectScore,
		"elapsed_ms", time.Since(start).Milliseconds())
	return nil
}
