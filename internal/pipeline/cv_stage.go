package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/evalstack/cv-evaluator/internal/docstore"
	"github.com/evalstack/cv-evaluator/internal/llm"
	"github.com/evalstack/cv-evaluator/internal/refstore"
	"github.com/evalstack/cv-evaluator/internal/retry"
)

// CVStage scores a candidate CV against the role description and rubric
// retrieved from the reference store.
type CVStage struct {
	invoker llm.Invoker
	docs    docstore.Store
	refs    refstore.Retriever
	policy  retry.Policy
	log     *slog.Logger
}

func NewCVStage(invoker llm.Invoker, docs docstore.Store, refs refstore.Retriever, policy retry.Policy, log *slog.Logger) *CVStage {
	if log == nil {
		log = slog.Default()
	}
	return &CVStage{invoker: invoker, docs: docs, refs: refs, policy: policy, log: log}
}

func (s *CVStage) Run(ctx context.Context, jobTitle, cvRef string) (*CVOutcome, error) {
	cv, err := s.docs.Fetch(ctx, cvRef)
	if err != nil {
		return nil, fmt.Errorf("fetch cv document: %w", err)
	}
	jobDesc, err := s.refs.Query(ctx, refstore.DocJobDescription, jobTitle)
	if err != nil {
		return nil, fmt.Errorf("retrieve job description: %w", err)
	}
	rubric, err := s.refs.Query(ctx, refstore.DocCVRubric, jobTitle)
	if err != nil {
		return nil, fmt.Errorf("retrieve cv rubric: %w", err)
	}

	req := llm.Request{
		Op:     "cv_scoring",
		System: cvSystemPrompt(jobTitle),
		User:   cvUserPrompt(string(cv), jobDesc, rubric),
		Schema: llm.CVScoringSchema,
	}
	raw, err := retry.Do(ctx, s.log, "cv_scoring", s.policy, func(ctx context.Context) ([]byte, error) {
		return s.invoker.Complete(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	var out CVOutcome
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal cv scoring output: %w", err)
	}
	out.MatchRate = cvMatchRate(&out)

	s.log.Info("pipeline.cv_stage.ok",
		"job_title", jobTitle,
		"match_rate", out.MatchRate,
	)
	return &out, nil
}

func cvSystemPrompt(jobTitle string) string {
	parts := []string{
		"You are a technical recruiter evaluating a candidate CV for the role of " + jobTitle + ".",
		"Score each rubric dimension on a 1-5 scale with a short rationale.",
		"Be specific: cite evidence from the CV, never invent experience.",
		"Return ONLY JSON that matches the JSON Schema provided.",
	}
	return strings.Join(parts, " ")
}

func cvUserPrompt(cv, jobDesc, rubric string) string {
	var b strings.Builder
	b.WriteString("Job description:\n")
	b.WriteString(jobDesc)
	b.WriteString("\n\nScoring rubric:\n")
	b.WriteString(rubric)
	b.WriteString("\n\nCandidate CV:\n")
	b.WriteString(clip(cv, 12000))
	return b.String()
}

// clip bounds prompt size; reference material stays intact, only the
// candidate document is truncated. The cut backs off to a rune boundary so
// a multi-byte character is never split.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
