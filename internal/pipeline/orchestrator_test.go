package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalstack/cv-evaluator/internal/llm"
	"github.com/evalstack/cv-evaluator/internal/retry"
)

// fakeInvoker scripts per-op responses and counts invocations.
type fakeInvoker struct {
	calls   map[string]int
	respond func(op string, call int) ([]byte, error)
}

func newFakeInvoker(respond func(op string, call int) ([]byte, error)) *fakeInvoker {
	return &fakeInvoker{calls: make(map[string]int), respond: respond}
}

func (f *fakeInvoker) Complete(ctx context.Context, req llm.Request) ([]byte, error) {
	f.calls[req.Op]++
	return f.respond(req.Op, f.calls[req.Op])
}

type fakeDocs map[string]string

func (d fakeDocs) Fetch(ctx context.Context, ref string) ([]byte, error) {
	body, ok := d[ref]
	if !ok {
		return nil, fmt.Errorf("document %q not found", ref)
	}
	return []byte(body), nil
}

func (d fakeDocs) Put(ctx context.Context, kind, filename string, data []byte) (string, error) {
	ref := kind + "/" + filename
	d[ref] = string(data)
	return ref, nil
}

type fakeRefs struct{}

func (fakeRefs) Query(ctx context.Context, docType, filterLabel string) (string, error) {
	return "reference text for " + docType, nil
}

func dim(score float64) map[string]any {
	return map[string]any{"score": score, "rationale": "because"}
}

func cvPayload() []byte {
	b, _ := json.Marshal(map[string]any{
		"technical_skills":      dim(4),
		"experience_level":      dim(3),
		"relevant_achievements": dim(5),
		"cultural_fit":          dim(4),
		"feedback":              "strong technical depth",
	})
	return b
}

func projectPayload() []byte {
	b, _ := json.Marshal(map[string]any{
		"correctness":   dim(4),
		"code_quality":  dim(4),
		"resilience":    dim(3),
		"documentation": dim(5),
		"creativity":    dim(2),
		"feedback":      "well tested, light on docs flair",
	})
	return b
}

func synthesisPayload() []byte {
	b, _ := json.Marshal(map[string]any{"overall_summary": "solid hire"})
	return b
}

func testPolicy(maxRetries int) retry.Policy {
	return retry.Policy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func newOrchestrator(inv llm.Invoker, p retry.Policy) *Orchestrator {
	docs := fakeDocs{"cv/1.pdf": "cv body", "project/1.pdf": "project body"}
	return NewOrchestrator(
		NewCVStage(inv, docs, fakeRefs{}, p, nil),
		NewProjectStage(inv, docs, fakeRefs{}, p, nil),
		NewSynthesisStage(inv, p, nil),
		nil,
	)
}

func happyResponder(op string, call int) ([]byte, error) {
	switch op {
	case "cv_scoring":
		return cvPayload(), nil
	case "project_scoring":
		return projectPayload(), nil
	case "synthesis":
		return synthesisPayload(), nil
	}
	return nil, fmt.Errorf("unexpected op %q", op)
}

func TestEvaluate_HappyPath(t *testing.T) {
	inv := newFakeInvoker(happyResponder)
	o := newOrchestrator(inv, testPolicy(2))

	res, err := o.Evaluate(context.Background(), "Backend Engineer", "cv/1.pdf", "project/1.pdf")
	require.NoError(t, err)

	// (4*0.40 + 3*0.25 + 5*0.20 + 4*0.15) / 5
	assert.InDelta(t, 0.79, res.CVMatchRate, 1e-9)
	// 4*0.30 + 4*0.25 + 3*0.20 + 5*0.15 + 2*0.10
	assert.InDelta(t, 3.75, res.ProjectScore, 1e-9)
	assert.Equal(t, "strong technical depth", res.CVFeedback)
	assert.Equal(t, "well tested, light on docs flair", res.ProjectFeedback)
	assert.Equal(t, "solid hire", res.OverallSummary)
	assert.GreaterOrEqual(t, res.CVMatchRate, 0.0)
	assert.LessOrEqual(t, res.CVMatchRate, 1.0)
	assert.GreaterOrEqual(t, res.ProjectScore, 1.0)
	assert.LessOrEqual(t, res.ProjectScore, 5.0)
}

func TestEvaluate_ProjectFailureSkipsSynthesis(t *testing.T) {
	inv := newFakeInvoker(func(op string, call int) ([]byte, error) {
		switch op {
		case "cv_scoring":
			return cvPayload(), nil
		case "project_scoring":
			return nil, &llm.APIError{StatusCode: 401, Body: "invalid api key"}
		}
		return synthesisPayload(), nil
	})
	o := newOrchestrator(inv, testPolicy(3))

	_, err := o.Evaluate(context.Background(), "Backend Engineer", "cv/1.pdf", "project/1.pdf")
	require.Error(t, err)
	assert.Equal(t, 1, inv.calls["project_scoring"], "401 is permanent: one attempt only")
	assert.Zero(t, inv.calls["synthesis"], "synthesis must not run after a project failure")
}

func TestEvaluate_CVFailureShortCircuits(t *testing.T) {
	inv := newFakeInvoker(func(op string, call int) ([]byte, error) {
		return nil, &llm.APIError{StatusCode: 503, Body: "service unavailable"}
	})
	o := newOrchestrator(inv, testPolicy(2))

	_, err := o.Evaluate(context.Background(), "Backend Engineer", "cv/1.pdf", "project/1.pdf")
	require.Error(t, err)
	assert.Equal(t, 3, inv.calls["cv_scoring"], "transient failure burns the whole budget")
	assert.Zero(t, inv.calls["project_scoring"])
	assert.Zero(t, inv.calls["synthesis"])

	var rerr *retry.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, retry.Retryable, rerr.Class)
}

func TestEvaluate_CVRecoversFromRateLimit(t *testing.T) {
	inv := newFakeInvoker(func(op string, call int) ([]byte, error) {
		if op == "cv_scoring" && call <= 2 {
			return nil, &llm.APIError{StatusCode: 429, Body: "too many requests"}
		}
		return happyResponder(op, call)
	})
	o := newOrchestrator(inv, testPolicy(4))

	res, err := o.Evaluate(context.Background(), "Backend Engineer", "cv/1.pdf", "project/1.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, inv.calls["cv_scoring"])
	assert.Equal(t, "solid hire", res.OverallSummary)
}

func TestEvaluate_MissingDocumentFailsBeforeInference(t *testing.T) {
	inv := newFakeInvoker(happyResponder)
	o := newOrchestrator(inv, testPolicy(2))

	_, err := o.Evaluate(context.Background(), "Backend Engineer", "cv/gone.pdf", "project/1.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Zero(t, inv.calls["cv_scoring"])
}
