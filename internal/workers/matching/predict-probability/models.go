// internal/workers/matching/predict-probability/models.go
package predictprobability

import "scholarship-workers/internal/models"

type Input struct {
	StudentID      string                 `json:"studentId,omitempty"`
	StudentProfile *models.StudentProfile `json:"studentProfile,omitempty"`
	Scholarship    *models.Scholarship    `json:"scholarship"`
}

type Output struct {
	// PredictionAvailable is false when no trained model covers the
	// scholarship; the probability is then a neutral placeholder, not a
	// score.
	PredictionAvailable  bool               `json:"predictionAvailable"`
	Probability          float64            `json:"probability"`
	Confidence           string             `json:"confidence"`
	ModelType            models.ModelType   `json:"modelType"`
	FeatureContributions map[string]float64 `json:"featureContributions,omitempty"`
}

// Confidence bands by distance of the probability from the 0.5 decision
// boundary.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)
