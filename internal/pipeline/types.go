package pipeline

// ScoredDimension is one rubric dimension scored by the model on a 1-5 scale.
type ScoredDimension struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// CVOutcome is the transient output of the CV stage. Only MatchRate and
// Feedback survive into the job record; the sub-scores feed the synthesis
// stage and are then discarded.
type CVOutcome struct {
	TechnicalSkills      ScoredDimension `json:"technical_skills"`
	ExperienceLevel      ScoredDimension `json:"experience_level"`
	RelevantAchievements ScoredDimension `json:"relevant_achievements"`
	CulturalFit          ScoredDimension `json:"cultural_fit"`

	// MatchRate is the weighted combination normalized to [0, 1].
	MatchRate float64 `json:"match_rate"`
	Feedback  string  `json:"feedback"`
}

// ProjectOutcome is the transient output of the project stage.
type ProjectOutcome struct {
	Correctness   ScoredDimension `json:"correctness"`
	CodeQuality   ScoredDimension `json:"code_quality"`
	Resilience    ScoredDimension `json:"resilience"`
	Documentation ScoredDimension `json:"documentation"`
	Creativity    ScoredDimension `json:"creativity"`

	// Score is the weighted combination on the 1-5 scale.
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// CV dimension weights (sum 1.0).
const (
	weightTechnicalSkills      = 0.40
	weightExperienceLevel      = 0.25
	weightRelevantAchievements = 0.20
	weightCulturalFit          = 0.15
)

// Project dimension weights (sum 1.0).
const (
	weightCorrectness   = 0.30
	weightCodeQuality   = 0.25
	weightResilience    = 0.20
	weightDocumentation = 0.15
	weightCreativity    = 0.10
)

// cvMatchRate combines the four weighted sub-scores (each 1-5) and
// normalizes the result to [0, 1].
func cvMatchRate(o *CVOutcome) float64 {
	weighted := o.TechnicalSkills.Score*weightTechnicalSkills +
		o.ExperienceLevel.Score*weightExperienceLevel +
		o.RelevantAchievements.Score*weightRelevantAchievements +
		o.CulturalFit.Score*weightCulturalFit
	return weighted / 5.0
}

// projectScore combines the five weighted sub-scores on the 1-5 scale.
func projectScore(o *ProjectOutcome) float64 {
	return o.Correctness.Score*weightCorrectness +
		o.CodeQuality.Score*weightCodeQuality +
		o.Resilience.Score*weightResilience +
		o.Documentation.Score*weightDocumentation +
		o.Creativity.Score*weightCreativity
}
