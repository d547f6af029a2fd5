package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/evalstack/cv-evaluator/internal/entity"
	"github.com/evalstack/cv-evaluator/internal/metrics"
)

// Orchestrator sequences the three evaluation stages. The stages run
// sequentially on the calling goroutine: synthesis needs both scoring
// outputs, and keeping the scoring calls serial bounds concurrent load on
// the inference service and keeps failure attribution simple. Any stage
// failure short-circuits the rest; no partial results leave this function.
type Orchestrator struct {
	cv        *CVStage
	project   *ProjectStage
	synthesis *SynthesisStage
	log       *slog.Logger
}

func NewOrchestrator(cv *CVStage, project *ProjectStage, synthesis *SynthesisStage, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{cv: cv, project: project, synthesis: synthesis, log: log}
}

// Evaluate runs the full pipeline for one submission and assembles the
// result tuple written verbatim into the job record.
func (o *Orchestrator) Evaluate(ctx context.Context, jobTitle, cvRef, projectRef string) (*entity.EvaluationResult, error) {
	start := time.Now()

	cvStart := time.Now()
	cvOut, err := o.cv.Run(ctx, jobTitle, cvRef)
	metrics.StageDuration.WithLabelValues("cv").Observe(time.Since(cvStart).Seconds())
	if err != nil {
		o.log.Error("pipeline.cv_stage.failed", "job_title", jobTitle, "err", err)
		return nil, err
	}

	projectStart := time.Now()
	projectOut, err := o.project.Run(ctx, jobTitle, projectRef)
	metrics.StageDuration.WithLabelValues("project").Observe(time.Since(projectStart).Seconds())
	if err != nil {
		o.log.Error("pipeline.project_stage.failed", "job_title", jobTitle, "err", err)
		return nil, err
	}

	synthStart := time.Now()
	summary, err := o.synthesis.Run(ctx, jobTitle, cvOut, projectOut)
	metrics.StageDuration.WithLabelValues("synthesis").Observe(time.Since(synthStart).Seconds())
	if err != nil {
		o.log.Error("pipeline.synthesis_stage.failed", "job_title", jobTitle, "err", err)
		return nil, err
	}

	o.log.Info("pipeline.evaluate.ok",
		"job_title", jobTitle,
		"cv_match_rate", cvOut.MatchRate,
		"project_score", projectOut.Score,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &entity.EvaluationResult{
		CVMatchRate:     cvOut.MatchRate,
		CVFeedback:      cvOut.Feedback,
		ProjectScore:    projectOut.Score,
		ProjectFeedback: projectOut.Feedback,
		OverallSummary:  summary,
	}, nil
}
