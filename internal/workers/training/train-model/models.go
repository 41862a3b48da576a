// internal/workers/training/train-model/models.go
package trainmodel

import "scholarship-workers/internal/training/autotrain"

// Training modes.
const (
	ModeGlobal      = "global"
	ModeScholarship = "scholarship"
	ModeAll         = "all"
)

type Input struct {
	Mode          string `json:"mode"`
	ScholarshipID string `json:"scholarshipId,omitempty"`
}

type Output struct {
	Results []*autotrain.Result `json:"results"`
}
