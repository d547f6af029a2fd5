package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/evalstack/cv-evaluator/constants"
	"github.com/evalstack/cv-evaluator/internal/common"
	"github.com/evalstack/cv-evaluator/internal/entity"
)

// sqliteJobRepo is the embedded single-node variant of JobRepository.
// Same state machine and guards as the Postgres repository.
type sqliteJobRepo struct {
	db  *sql.DB
	log *slog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS evaluation_job (
	id               TEXT PRIMARY KEY,
	job_title        TEXT NOT NULL,
	cv_ref           TEXT NOT NULL,
	project_ref      TEXT NOT NULL,
	status           TEXT NOT NULL,
	cv_match_rate    REAL,
	cv_feedback      TEXT,
	project_score    REAL,
	project_feedback TEXT,
	overall_summary  TEXT,
	error_message    TEXT,
	retry_count      INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMP NOT NULL,
	started_at       TIMESTAMP,
	finished_at      TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_evaluation_job_status ON evaluation_job (status, created_at);
`

// OpenSQLite opens (and if needed initializes) the embedded job store.
func OpenSQLite(path string, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "open sqlite")
	}
	// modernc sqlite is not safe for concurrent writers over one connection pool
	// beyond a single open conn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "apply sqlite schema")
	}
	log.Info("sqlite job store ready", "path", path)
	return db, nil
}

func NewSQLiteJobRepository(db *sql.DB, log *slog.Logger) JobRepository {
	return &sqliteJobRepo{db: db, log: log}
}

func (r *sqliteJobRepo) Create(ctx context.Context, job *entity.EvaluationJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = constants.JobQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO evaluation_job (id, job_title, cv_ref, project_ref, status, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		job.ID.String(), job.JobTitle, job.CVRef, job.ProjectRef, string(job.Status), job.CreatedAt,
	)
	if err != nil {
		r.log.Error("evaluation_job create failed", "job_id", job.ID, "err", err)
		return err
	}
	r.log.Info("evaluation_job created", "job_id", job.ID, "job_title", job.JobTitle)
	return nil
}

func (r *sqliteJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.EvaluationJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM evaluation_job WHERE id = ?`, id.String())
	job, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return job, err
}

func (r *sqliteJobRepo) MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE evaluation_job SET status = ?, started_at = ?
		WHERE id = ? AND status = ?`,
		string(constants.JobProcessing), startedAt, id.String(), string(constants.JobQueued),
	)
	return r.checkTransition(res, err, id, "processing")
}

func (r *sqliteJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, resit entity.EvaluationResult, finishedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE evaluation_job
		SET status = ?,
		    cv_match_rate = ?, cv_feedback = ?,
		    project_score = ?, project_feedback = ?,
		    overall_summary = ?,
		    finished_at = ?
		WHERE id = ? AND status = ?`,
		string(constants.JobCompleted),
		resit.CVMatchRate, resit.CVFeedback, resit.ProjectScore, resit.ProjectFeedback, resit.OverallSummary,
		finishedAt, id.String(), string(constants.JobProcessing),
	)
	return r.checkTransition(res, err, id, "completed")
}

func (r *sqliteJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string, finishedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE evaluation_job
		SET status = ?, error_message = ?, retry_count = retry_count + 1, finished_at = ?
		WHERE id = ? AND status = ?`,
		string(constants.JobFailed), message, finishedAt, id.String(), string(constants.JobProcessing),
	)
	return r.checkTransition(res, err, id, "failed")
}

func (r *sqliteJobRepo) ListByStatus(ctx context.Context, status constants.JobStatus, limit int) ([]*entity.EvaluationJob, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM evaluation_job
		WHERE status = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		string(status), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*entity.EvaluationJob
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *sqliteJobRepo) checkTransition(res sql.Result, err error, id uuid.UUID, to string) error {
	if err != nil {
		r.log.Error("evaluation_job transition failed", "job_id", id, "to", to, "err", err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrConflict
	}
	r.log.Info("evaluation_job transitioned", "job_id", id, "to", to)
	return nil
}

func scanSQLiteJob(row rowScanner) (*entity.EvaluationJob, error) {
	var (
		job    entity.EvaluationJob
		rawID  string
		status string
	)
	err := row.Scan(
		&rawID, &job.JobTitle, &job.CVRef, &job.ProjectRef, &status,
		&job.CVMatchRate, &job.CVFeedback, &job.ProjectScore, &job.ProjectFeedback, &job.OverallSummary,
		&job.ErrorMessage, &job.RetryCount, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, common.WrapError(err, "parse job id")
	}
	job.ID = id
	job.Status = constants.JobStatus(status)
	return &job, nil
}
