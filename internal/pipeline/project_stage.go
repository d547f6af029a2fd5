package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evalstack/cv-evaluator/internal/docstore"
	"github.com/evalstack/cv-evaluator/internal/llm"
	"github.com/evalstack/cv-evaluator/internal/refstore"
	"github.com/evalstack/cv-evaluator/internal/retry"
)

// ProjectStage scores the candidate's project report against the case-study
// brief and project rubric.
type ProjectStage struct {
	invoker llm.Invoker
	docs    docstore.Store
	refs    refstore.Retriever
	policy  retry.Policy
	log     *slog.Logger
}

func NewProjectStage(invoker llm.Invoker, docs docstore.Store, refs refstore.Retriever, policy retry.Policy, log *slog.Logger) *ProjectStage {
	if log == nil {
		log = slog.Default()
	}
	return &ProjectStage{invoker: invoker, docs: docs, refs: refs, policy: policy, log: log}
}

func (s *ProjectStage) Run(ctx context.Context, jobTitle, projectRef string) (*ProjectOutcome, error) {
	report, err := s.docs.Fetch(ctx, projectRef)
	if err != nil {
		return nil, fmt.Errorf("fetch project document: %w", err)
	}
	brief, err := s.refs.Query(ctx, refstore.DocCaseBrief, jobTitle)
	if err != nil {
		return nil, fmt.Errorf("retrieve case brief: %w", err)
	}
	rubric, err := s.refs.Query(ctx, refstore.DocProjectRubric, jobTitle)
	if err != nil {
		return nil, fmt.Errorf("retrieve project rubric: %w", err)
	}

	req := llm.Request{
		Op:     "project_scoring",
		System: projectSystemPrompt(),
		User:   projectUserPrompt(string(report), brief, rubric),
		Schema: llm.ProjectScoringSchema,
	}
	raw, err := retry.Do(ctx, s.log, "project_scoring", s.policy, func(ctx context.Context) ([]byte, error) {
		return s.invoker.Complete(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	var out ProjectOutcome
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal project scoring output: %w", err)
	}
	out.Score = projectScore(&out)

	s.log.Info("pipeline.project_stage.ok", "score", out.Score)
	return &out, nil
}

func projectSystemPrompt() string {
	parts := []string{
		"You are a senior engineer reviewing a take-home project report.",
		"Score each rubric dimension on a 1-5 scale with a short rationale grounded in the report.",
		"Judge only what the report shows; missing evidence scores low.",
		"Return ONLY JSON that matches the JSON Schema provided.",
	}
	return strings.Join(parts, " ")
}

func projectUserPrompt(report, brief, rubric string) string {
	var b strings.Builder
	b.WriteString("Case-study brief:\n")
	b.WriteString(brief)
	b.WriteString("\n\nScoring rubric:\n")
	b.WriteString(rubric)
	b.WriteString("\n\nProject report:\n")
	b.WriteString(clip(report, 12000))
	return b.String()
}
