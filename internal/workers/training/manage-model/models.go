// internal/workers/training/manage-model/models.go
package managemodel

import "scholarship-workers/internal/models"

// Registry actions.
const (
	ActionActivate = "activate"
	ActionDelete   = "delete"
)

type Input struct {
	Action  string `json:"action"`
	ModelID string `json:"modelId"`
}

type Output struct {
	Action  string        `json:"action"`
	ModelID string        `json:"modelId"`
	Model   *models.Model `json:"model,omitempty"`
}
