package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evalstack/cv-evaluator/internal/llm"
	"github.com/evalstack/cv-evaluator/internal/retry"
)

// SynthesisStage condenses the full structured outputs of the scoring stages
// into one holistic summary. It performs no scoring of its own.
type SynthesisStage struct {
	invoker llm.Invoker
	policy  retry.Policy
	log     *slog.Logger
}

func NewSynthesisStage(invoker llm.Invoker, policy retry.Policy, log *slog.Logger) *SynthesisStage {
	if log == nil {
		log = slog.Default()
	}
	return &SynthesisStage{invoker: invoker, policy: policy, log: log}
}

func (s *SynthesisStage) Run(ctx context.Context, jobTitle string, cv *CVOutcome, project *ProjectOutcome) (string, error) {
	cvJSON, err := json.MarshalIndent(cv, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal cv outcome: %w", err)
	}
	projectJSON, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal project outcome: %w", err)
	}

	req := llm.Request{
		Op:     "synthesis",
		System: synthesisSystemPrompt(jobTitle),
		User:   synthesisUserPrompt(string(cvJSON), string(projectJSON)),
		Schema: llm.SynthesisSchema,
	}
	raw, err := retry.Do(ctx, s.log, "synthesis", s.policy, func(ctx context.Context) ([]byte, error) {
		return s.invoker.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}

	var out struct {
		OverallSummary string `json:"overall_summary"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unmarshal synthesis output: %w", err)
	}

	s.log.Info("pipeline.synthesis_stage.ok", "summary_len", len(out.OverallSummary))
	return out.OverallSummary, nil
}

func synthesisSystemPrompt(jobTitle string) string {
	parts := []string{
		"You summarize a completed candidate evaluation for the role of " + jobTitle + ".",
		"Write 3-5 sentences covering strengths, gaps, and a hiring recommendation.",
		"Use only the scores and rationales given; do not re-score anything.",
		"Return ONLY JSON that matches the JSON Schema provided.",
	}
	return strings.Join(parts, " ")
}

func synthesisUserPrompt(cvJSON, projectJSON string) string {
	var b strings.Builder
	b.WriteString("CV evaluation:\n")
	b.WriteString(cvJSON)
	b.WriteString("\n\nProject evaluation:\n")
	b.WriteString(projectJSON)
	return b.String()
}
