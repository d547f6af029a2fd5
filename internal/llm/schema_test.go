package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dim(score float64) map[string]any {
	return map[string]any{"score": score, "rationale": "because"}
}

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestCVScoringSchema_AcceptsCompletePayload(t *testing.T) {
	payload := marshal(t, map[string]any{
		"technical_skills":      dim(4),
		"experience_level":      dim(3),
		"relevant_achievements": dim(5),
		"cultural_fit":          dim(4),
		"feedback":              "strong",
	})
	assert.NoError(t, CVScoringSchema.Validate(payload))
}

func TestCVScoringSchema_RejectsMissingDimension(t *testing.T) {
	payload := marshal(t, map[string]any{
		"technical_skills": dim(4),
		"feedback":         "strong",
	})
	err := CVScoringSchema.Validate(payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match schema")
}

func TestProjectScoringSchema_RejectsOutOfRangeScore(t *testing.T) {
	payload := marshal(t, map[string]any{
		"correctness":   dim(6),
		"code_quality":  dim(4),
		"resilience":    dim(3),
		"documentation": dim(5),
		"creativity":    dim(2),
		"feedback":      "fine",
	})
	assert.Error(t, ProjectScoringSchema.Validate(payload))
}

func TestSynthesisSchema_RejectsEmptySummary(t *testing.T) {
	assert.Error(t, SynthesisSchema.Validate([]byte(`{"overall_summary":""}`)))
	assert.NoError(t, SynthesisSchema.Validate([]byte(`{"overall_summary":"solid hire"}`)))
}

func TestSchemaValidate_RejectsNonJSON(t *testing.T) {
	err := SynthesisSchema.Validate([]byte("not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

// Stage schemas are compiled once at init; JSON() must hand back the same
// document the prompt embeds, without re-marshalling.
func TestSchemaJSON_IsStable(t *testing.T) {
	first := CVScoringSchema.JSON()
	assert.Equal(t, first, CVScoringSchema.JSON())
	assert.True(t, strings.Contains(first, "technical_skills"))
}
