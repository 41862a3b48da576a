// internal/models/model.go
package models

import "time"

// ModelType identifies the specialization scope of a trained model.
type ModelType string

const (
	ModelTypeGlobal      ModelType = "global"
	ModelTypeScholarship ModelType = "scholarship_specific"
	// ModelTypeNone is reported to callers when no trained model is
	// available in any scope. It never appears on a stored model.
	ModelTypeNone ModelType = "none"
)

// ScopeGlobal is the lock/counter scope shared by all scholarships.
// Scholarship-specific scopes use the scholarship id directly.
const ScopeGlobal = "global"

// ModelMetrics holds cross-validated classification metrics.
type ModelMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Model is a versioned logistic-regression artifact stored in the model
// registry. At most one model per scope is active at any time.
type Model struct {
	ModelID           string             `json:"modelId"`
	ModelType         ModelType          `json:"modelType"`
	ScholarshipID     string             `json:"scholarshipId,omitempty"`
	Weights           map[string]float64 `json:"weights"`
	Bias              float64            `json:"bias"`
	Metrics           ModelMetrics       `json:"metrics"`
	FeatureImportance map[string]float64 `json:"featureImportance"`
	SampleCount       int                `json:"sampleCount"`
	TrainedAt         time.Time          `json:"trainedAt"`
	IsActive          bool               `json:"isActive"`
}

// Scope returns the lock/counter scope this model belongs to.
func (m *Model) Scope() string {
	if m.ModelType == ModelTypeScholarship && m.ScholarshipID != "" {
		return m.ScholarshipID
	}
	return ScopeGlobal
}

// Decision labels.
const (
	LabelApproved = "approved"
	LabelRejected = "rejected"
)

// TrainingSample is one labeled decision outcome, append-only input to
// training. Features are the extractor's normalized [0,1] values captured at
// decision time.
type TrainingSample struct {
	ID            string             `json:"id"`
	ScholarshipID string             `json:"scholarshipId,omitempty"`
	Features      map[string]float64 `json:"features"`
	Label         string             `json:"label"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// Approved reports whether the sample carries a positive label.
func (s *TrainingSample) Approved() bool {
	return s.Label == LabelApproved
}

// Retrain event types recorded by the auto-retrain orchestrator.
const (
	EventTrainingCompleted = "training_completed"
	EventTrainingFailed    = "training_failed"
	EventTrainingSkipped   = "training_skipped"
)

// RetrainEvent is one entry of the bounded, most-recent-first training log.
type RetrainEvent struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"type"`
	Scope         string    `json:"scope"`
	ScholarshipID string    `json:"scholarshipId,omitempty"`
	Accuracy      *float64  `json:"accuracy,omitempty"`
	SampleCount   int       `json:"sampleCount,omitempty"`
	Error         string    `json:"error,omitempty"`
}
