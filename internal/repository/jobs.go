package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evalstack/cv-evaluator/constants"
	"github.com/evalstack/cv-evaluator/internal/common"
	"github.com/evalstack/cv-evaluator/internal/entity"
)

// JobRepository is the sole means of observing and mutating evaluation_job
// rows. Only the worker writes to a job after creation.
type JobRepository interface {
	Create(ctx context.Context, job *entity.EvaluationJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.EvaluationJob, error)
	// MarkProcessing performs the queued -> processing transition and stamps
	// the start time. It is a no-op guarded by a state check: rows not in
	// queued state are left untouched and common.ErrConflict is returned.
	MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	// MarkCompleted writes all five result fields and the completion time in
	// one atomic update, transitioning processing -> completed.
	MarkCompleted(ctx context.Context, id uuid.UUID, res entity.EvaluationResult, finishedAt time.Time) error
	// MarkFailed records the failure message, bumps the retry counter and
	// stamps the completion time, transitioning processing -> failed.
	MarkFailed(ctx context.Context, id uuid.UUID, message string, finishedAt time.Time) error
	ListByStatus(ctx context.Context, status constants.JobStatus, limit int) ([]*entity.EvaluationJob, error)
}

type pgJobRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewJobRepository(pool *pgxpool.Pool, log *slog.Logger) JobRepository {
	return &pgJobRepo{pool: pool, log: log}
}

const jobColumns = `id, job_title, cv_ref, project_ref, status,
cv_match_rate, cv_feedback, project_score, project_feedback, overall_summary,
error_message, retry_count, created_at, started_at, finished_at`

func (r *pgJobRepo) Create(ctx context.Context, job *entity.EvaluationJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = constants.JobQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO evaluation_job (id, job_title, cv_ref, project_ref, status, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)`,
		job.ID, job.JobTitle, job.CVRef, job.ProjectRef, string(job.Status), job.CreatedAt,
	)
	if err != nil {
		r.log.Error("evaluation_job create failed", "job_id", job.ID, "err", err)
		return err
	}
	r.log.Info("evaluation_job created", "job_id", job.ID, "job_title", job.JobTitle)
	return nil
}

func (r *pgJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.EvaluationJob, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM evaluation_job WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return job, err
}

func (r *pgJobRepo) MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE evaluation_job
		SET status = $2, started_at = $3
		WHERE id = $1 AND status = $4`,
		id, string(constants.JobProcessing), startedAt, string(constants.JobQueued),
	)
	if err != nil {
		r.log.Error("evaluation_job mark processing failed", "job_id", id, "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrConflict
	}
	r.log.Info("evaluation_job processing", "job_id", id)
	return nil
}

func (r *pgJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, res entity.EvaluationResult, finishedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE evaluation_job
		SET status = $2,
		    cv_match_rate = $3, cv_feedback = $4,
		    project_score = $5, project_feedback = $6,
		    overall_summary = $7,
		    finished_at = $8
		WHERE id = $1 AND status = $9`,
		id, string(constants.JobCompleted),
		res.CVMatchRate, res.CVFeedback, res.ProjectScore, res.ProjectFeedback, res.OverallSummary,
		finishedAt, string(constants.JobProcessing),
	)
	if err != nil {
		r.log.Error("evaluation_job mark completed failed", "job_id", id, "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrConflict
	}
	r.log.Info("evaluation_job completed", "job_id", id,
		"cv_match_rate", res.CVMatchRate, "project_score", res.ProjectScore)
	return nil
}

func (r *pgJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string, finishedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE evaluation_job
		SET status = $2, error_message = $3, retry_count = retry_count + 1, finished_at = $4
		WHERE id = $1 AND status = $5`,
		id, string(constants.JobFailed), message, finishedAt, string(constants.JobProcessing),
	)
	if err != nil {
		r.log.Error("evaluation_job mark failed errored", "job_id", id, "err", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrConflict
	}
	r.log.Warn("evaluation_job failed", "job_id", id, "error", message)
	return nil
}

func (r *pgJobRepo) ListByStatus(ctx context.Context, status constants.JobStatus, limit int) ([]*entity.EvaluationJob, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM evaluation_job
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		string(status), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*entity.EvaluationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.EvaluationJob, error) {
	var (
		job    entity.EvaluationJob
		status string
	)
	err := row.Scan(
		&job.ID, &job.JobTitle, &job.CVRef, &job.ProjectRef, &status,
		&job.CVMatchRate, &job.CVFeedback, &job.ProjectScore, &job.ProjectFeedback, &job.OverallSummary,
		&job.ErrorMessage, &job.RetryCount, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = constants.JobStatus(status)
	return &job, nil
}
