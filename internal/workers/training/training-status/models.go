// internal/workers/training/training-status/models.go
package trainingstatus

import (
	"scholarship-workers/internal/models"
	"scholarship-workers/internal/training/autotrain"
)

type Input struct {
	LogLimit int `json:"logLimit,omitempty"`
}

type Output struct {
	Status *autotrain.Status      `json:"status"`
	Log    []*models.RetrainEvent `json:"log"`
}
