package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/evalstack/cv-evaluator/constants"
)

// EvaluationJob represents one candidate evaluation for data transfer between layers.
// Result fields and failure fields are mutually exclusive: a completed job never
// carries an error message, a failed job never carries scores.
type EvaluationJob struct {
	ID         uuid.UUID           `json:"id"`
	JobTitle   string              `json:"job_title"`
	CVRef      string              `json:"cv_ref"`
	ProjectRef string              `json:"project_ref"`
	Status     constants.JobStatus `json:"status"`

	CVMatchRate     *float64 `json:"cv_match_rate,omitempty"`
	CVFeedback      *string  `json:"cv_feedback,omitempty"`
	ProjectScore    *float64 `json:"project_score,omitempty"`
	ProjectFeedback *string  `json:"project_feedback,omitempty"`
	OverallSummary  *string  `json:"overall_summary,omitempty"`

	ErrorMessage *string `json:"error_message,omitempty"`
	RetryCount   int     `json:"retry_count"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// EvaluationResult is the tuple written atomically into the job row when the
// pipeline succeeds. All five fields are always set together.
type EvaluationResult struct {
	CVMatchRate     float64 `json:"cv_match_rate"`
	CVFeedback      string  `json:"cv_feedback"`
	ProjectScore    float64 `json:"project_score"`
	ProjectFeedback string  `json:"project_feedback"`
	OverallSummary  string  `json:"overall_summary"`
}
