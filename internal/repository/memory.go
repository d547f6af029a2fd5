package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evalstack/cv-evaluator/constants"
	"github.com/evalstack/cv-evaluator/internal/common"
	"github.com/evalstack/cv-evaluator/internal/entity"
)

// MemoryJobRepository keeps jobs in a mutex-guarded map. It enforces the same
// transition guards as the SQL repositories and backs tests and the one-shot CLI.
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*entity.EvaluationJob
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[uuid.UUID]*entity.EvaluationJob)}
}

func (r *MemoryJobRepository) Create(ctx context.Context, job *entity.EvaluationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = constants.JobQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *MemoryJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.EvaluationJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *MemoryJobRepository) MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	if !job.Status.CanTransition(constants.JobProcessing) {
		return common.ErrConflict
	}
	job.Status = constants.JobProcessing
	job.StartedAt = &startedAt
	return nil
}

func (r *MemoryJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, res entity.EvaluationResult, finishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	if !job.Status.CanTransition(constants.JobCompleted) {
		return common.ErrConflict
	}
	job.Status = constants.JobCompleted
	job.CVMatchRate = &res.CVMatchRate
	job.CVFeedback = &res.CVFeedback
	job.ProjectScore = &res.ProjectScore
	job.ProjectFeedback = &res.ProjectFeedback
	job.OverallSummary = &res.OverallSummary
	job.FinishedAt = &finishedAt
	return nil
}

func (r *MemoryJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string, finishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	if !job.Status.CanTransition(constants.JobFailed) {
		return common.ErrConflict
	}
	job.Status = constants.JobFailed
	job.ErrorMessage = &message
	job.RetryCount++
	job.FinishedAt = &finishedAt
	return nil
}

func (r *MemoryJobRepository) ListByStatus(ctx context.Context, status constants.JobStatus, limit int) ([]*entity.EvaluationJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	var out []*entity.EvaluationJob
	for _, job := range r.jobs {
		if job.Status == status {
			cp := *job
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
