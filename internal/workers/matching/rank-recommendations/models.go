// internal/workers/matching/rank-recommendations/models.go
package rankrecommendations

import "scholarship-workers/internal/models"

type Input struct {
	StudentProfile *models.StudentProfile `json:"studentProfile"`
	Candidates     []*models.Scholarship  `json:"candidates"`
	Limit          int                    `json:"limit,omitempty"`
}

type Output struct {
	Recommendations []Recommendation `json:"recommendations"`
	TotalEvaluated  int              `json:"totalEvaluated"`
}

// Recommendation is one ranked entry: eligibility always wins over
// probability, so an eligible low-probability match still outranks an
// ineligible high-probability one.
type Recommendation struct {
	ScholarshipID    string           `json:"scholarshipId"`
	Name             string           `json:"name"`
	Eligible         bool             `json:"eligible"`
	EligibilityScore float64          `json:"eligibilityScore"`
	Probability      float64          `json:"probability"`
	ModelType        models.ModelType `json:"modelType"`
}
