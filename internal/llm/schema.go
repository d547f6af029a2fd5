package llm

// JSON Schemas (draft 2020-12 subset) for the three pipeline stages. Each
// schema is passed to the inference service as a structured-output constraint
// and used locally to validate the response before it is trusted. They are
// fixed, so all three compile once at package init.

func scoreProp() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"score":     map[string]any{"type": "number", "minimum": 1, "maximum": 5},
			"rationale": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"score", "rationale"},
	}
}

// CVScoringSchema constrains the CV stage output: four scored dimensions
// plus a feedback string.
var CVScoringSchema = mustSchema("cv_scoring.json", map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"technical_skills":      scoreProp(),
		"experience_level":      scoreProp(),
		"relevant_achievements": scoreProp(),
		"cultural_fit":          scoreProp(),
		"feedback":              map[string]any{"type": "string", "minLength": 1},
	},
	"required": []string{
		"technical_skills", "experience_level", "relevant_achievements", "cultural_fit", "feedback",
	},
})

// ProjectScoringSchema constrains the project stage output: five scored
// dimensions plus a feedback string.
var ProjectScoringSchema = mustSchema("project_scoring.json", map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"correctness":   scoreProp(),
		"code_quality":  scoreProp(),
		"resilience":    scoreProp(),
		"documentation": scoreProp(),
		"creativity":    scoreProp(),
		"feedback":      map[string]any{"type": "string", "minLength": 1},
	},
	"required": []string{
		"correctness", "code_quality", "resilience", "documentation", "creativity", "feedback",
	},
})

// SynthesisSchema constrains the synthesis stage output to a single
// holistic summary.
var SynthesisSchema = mustSchema("synthesis.json", map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"overall_summary": map[string]any{"type": "string", "minLength": 1},
	},
	"required": []string{"overall_summary"},
})
